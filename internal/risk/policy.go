package risk

import (
	"context"
	"fmt"

	"tradehook/internal/signal"
)

// Policy is a pluggable risk check with an explicit disabled state, so
// "policy absent" is distinguishable from "policy evaluated and passed".
type Policy struct {
	Name    string
	Enabled bool
	Check   func(ctx context.Context, sig *signal.Signal) (ok bool, reason string, err error)
}

// Disabled returns a policy that is skipped entirely.
func Disabled() Policy {
	return Policy{}
}

// evaluate runs a policy. The second return reports whether the policy was
// actually evaluated. Check errors reject (fail closed).
func evaluate(ctx context.Context, p Policy, sig *signal.Signal) (Decision, bool) {
	if !p.Enabled || p.Check == nil {
		return Decision{}, false
	}
	ok, reason, err := p.Check(ctx, sig)
	if err != nil {
		return reject(fmt.Sprintf("%s check failed: %v", p.Name, err)), true
	}
	if !ok {
		return reject(reason), true
	}
	return Decision{Approved: true}, true
}

// DailyLossSource reports today's realized loss and the reference balance
// for percentage computation.
type DailyLossSource func(ctx context.Context) (loss, balance float64, err error)

// DrawdownPolicy rejects signals once today's realized loss exceeds
// maxDailyLossPct of the reference balance.
func DrawdownPolicy(maxDailyLossPct float64, source DailyLossSource) Policy {
	return Policy{
		Name:    "drawdown",
		Enabled: true,
		Check: func(ctx context.Context, _ *signal.Signal) (bool, string, error) {
			loss, balance, err := source(ctx)
			if err != nil {
				return false, "", err
			}
			if balance <= 0 {
				return true, "", nil
			}
			lossPct := loss / balance * 100
			if lossPct >= maxDailyLossPct {
				return false, fmt.Sprintf("Daily drawdown %.2f%% exceeds maximum %.2f%%", lossPct, maxDailyLossPct), nil
			}
			return true, "", nil
		},
	}
}

// RangeSource reports the high/low price range over the recent window.
type RangeSource func(ctx context.Context, symbol string) (high, low float64, err error)

// VolatilityPolicy rejects signals when the recent price range exceeds
// maxRangePct of the low. Wire a real range source before enabling; the
// manager skips it entirely while disabled.
func VolatilityPolicy(maxRangePct float64, source RangeSource) Policy {
	return Policy{
		Name:    "volatility",
		Enabled: true,
		Check: func(ctx context.Context, sig *signal.Signal) (bool, string, error) {
			high, low, err := source(ctx, sig.Symbol)
			if err != nil {
				return false, "", err
			}
			if low <= 0 {
				return true, "", nil
			}
			rangePct := (high - low) / low * 100
			if rangePct > maxRangePct {
				return false, fmt.Sprintf("Volatility %.2f%% exceeds maximum %.2f%%", rangePct, maxRangePct), nil
			}
			return true, "", nil
		},
	}
}
