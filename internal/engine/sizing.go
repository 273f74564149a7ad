package engine

import (
	"context"
	"fmt"
	"math"

	"tradehook/internal/signal"
)

// orderAmount computes the quantity for a buy. An explicit signal amount is
// used verbatim; otherwise the amount is sized from the available quote
// balance and the configured risk percentage. The result is clamped to the
// position-value ceiling and per-symbol bounds, rejected when it cannot meet
// the minimum order value, and rounded down to the symbol's precision.
func (e *Engine) orderAmount(ctx context.Context, sig *signal.Signal, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("no price available for %s", sig.Symbol)
	}

	amount := sig.Amount
	if amount <= 0 {
		available, err := e.exchange.AvailableBalance(ctx, sig.Quote())
		if err != nil {
			return 0, fmt.Errorf("fetch quote balance: %w", err)
		}
		orderValue := available * e.cfg.RiskPercentage / 100
		amount = orderValue / price
	}

	if e.cfg.MaxPositionValue > 0 {
		amount = math.Min(amount, e.cfg.MaxPositionValue/price)
	}

	params := e.symbols.Params(sig.Symbol)
	if params.MaxAmount > 0 {
		amount = math.Min(amount, params.MaxAmount)
	}
	if params.MinAmount > 0 && amount < params.MinAmount {
		return 0, &SizingError{Symbol: sig.Symbol, Amount: amount, Floor: params.MinAmount}
	}

	floor := e.cfg.MinOrderValue
	if params.MinNotional > floor {
		floor = params.MinNotional
	}
	if floor > 0 && amount < floor/price {
		return 0, &SizingError{Symbol: sig.Symbol, Amount: amount, Floor: floor / price}
	}

	return roundDown(amount, params.Precision), nil
}

// roundDown truncates to the symbol's decimal precision. Truncation rather
// than rounding so we never submit more than the balance covers.
func roundDown(v float64, precision int) float64 {
	if precision <= 0 {
		precision = 8
	}
	factor := math.Pow(10, float64(precision))
	return math.Floor(v*factor) / factor
}
