package risk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tradehook/internal/position"
	"tradehook/internal/signal"
)

type fakeBalances struct {
	available float64
	err       error
}

func (f fakeBalances) AvailableBalance(ctx context.Context, currency string) (float64, error) {
	return f.available, f.err
}

type fakePrices struct {
	price float64
	err   error
	calls int
}

func (f *fakePrices) TickerPrice(ctx context.Context, pair string) (float64, error) {
	f.calls++
	return f.price, f.err
}

func buySignal(amount float64) *signal.Signal {
	return &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Amount: amount}
}

func newTestManager(balances BalanceSource, prices PriceSource, ledger *position.Ledger) *Manager {
	if ledger == nil {
		ledger = position.NewLedger()
	}
	return NewManager(DefaultSettings(), balances, prices, ledger)
}

func TestCheckRiskInsufficientBalance(t *testing.T) {
	prices := &fakePrices{price: 50000}
	m := newTestManager(fakeBalances{available: 5}, prices, nil)

	dec := m.CheckRisk(context.Background(), buySignal(0.01))
	if dec.Approved {
		t.Fatal("should reject")
	}
	if !strings.Contains(dec.Reason, "Insufficient balance") {
		t.Errorf("reason = %q", dec.Reason)
	}
	// Balance is checked before any sizing-related ticker call.
	if prices.calls != 0 {
		t.Errorf("ticker called %d times before balance rejection", prices.calls)
	}
}

func TestCheckRiskPositionValueCeiling(t *testing.T) {
	m := newTestManager(fakeBalances{available: 10000}, &fakePrices{price: 50000}, nil)

	// 0.03 * 50000 = 1500 > default max 1000
	dec := m.CheckRisk(context.Background(), buySignal(0.03))
	if dec.Approved {
		t.Fatal("should reject")
	}
	if !strings.Contains(dec.Reason, "exceeds maximum") {
		t.Errorf("reason = %q", dec.Reason)
	}
}

func TestCheckRiskUsesSignalPriceWhenPresent(t *testing.T) {
	prices := &fakePrices{err: errors.New("ticker down")}
	m := newTestManager(fakeBalances{available: 10000}, prices, nil)

	sig := buySignal(0.01)
	sig.Price = 50000
	dec := m.CheckRisk(context.Background(), sig)
	if !dec.Approved {
		t.Fatalf("rejected: %s", dec.Reason)
	}
	if prices.calls != 0 {
		t.Error("ticker should not be called when the signal carries a price")
	}
}

func TestCheckRiskFailsClosedOnError(t *testing.T) {
	m := newTestManager(fakeBalances{err: errors.New("api timeout")}, &fakePrices{price: 1}, nil)

	dec := m.CheckRisk(context.Background(), buySignal(0.01))
	if dec.Approved {
		t.Fatal("check errors must reject")
	}
	if !strings.Contains(dec.Reason, "api timeout") {
		t.Errorf("reason = %q", dec.Reason)
	}
}

func TestCheckRiskCorrelationCeiling(t *testing.T) {
	ledger := position.NewLedger()
	ledger.ApplyBuy("BTC_USDT", 0.01, 50000)
	ledger.ApplyBuy("ETH_USDT", 0.5, 3000)
	ledger.ApplyBuy("SOL_USDT", 5, 150)

	m := newTestManager(fakeBalances{available: 10000}, &fakePrices{price: 100}, ledger)

	// Default ceiling is 3 and 3 longs are open.
	dec := m.CheckRisk(context.Background(), buySignal(0.001))
	if dec.Approved {
		t.Fatal("fourth long should exceed the correlation ceiling")
	}
	if !strings.Contains(dec.Reason, "open long positions") {
		t.Errorf("reason = %q", dec.Reason)
	}

	// Close actions never count against correlation.
	closeSig := &signal.Signal{Action: signal.ActionClose, Symbol: "BTC_USDT"}
	if dec := m.CheckRisk(context.Background(), closeSig); !dec.Approved {
		t.Errorf("close rejected: %s", dec.Reason)
	}
}

func TestDrawdownPolicy(t *testing.T) {
	m := newTestManager(fakeBalances{available: 10000}, &fakePrices{price: 100}, nil)

	// Disabled by default: a huge loss does not reject.
	if dec := m.CheckRisk(context.Background(), buySignal(0.001)); !dec.Approved {
		t.Fatalf("disabled policy rejected: %s", dec.Reason)
	}

	m.SetDrawdownPolicy(DrawdownPolicy(10, func(ctx context.Context) (float64, float64, error) {
		return 1500, 10000, nil // 15% daily loss
	}))
	dec := m.CheckRisk(context.Background(), buySignal(0.001))
	if dec.Approved {
		t.Fatal("drawdown over ceiling should reject")
	}
	if !strings.Contains(dec.Reason, "drawdown") {
		t.Errorf("reason = %q", dec.Reason)
	}
}

func TestVolatilityPolicyFailsClosed(t *testing.T) {
	m := newTestManager(fakeBalances{available: 10000}, &fakePrices{price: 100}, nil)
	m.SetVolatilityPolicy(VolatilityPolicy(5, func(ctx context.Context, symbol string) (float64, float64, error) {
		return 0, 0, errors.New("no candle data")
	}))

	dec := m.CheckRisk(context.Background(), buySignal(0.001))
	if dec.Approved {
		t.Fatal("volatility source error must reject when the policy is enabled")
	}
}

func TestCheckRiskApproves(t *testing.T) {
	m := newTestManager(fakeBalances{available: 10000}, &fakePrices{price: 50000}, nil)

	dec := m.CheckRisk(context.Background(), buySignal(0.01))
	if !dec.Approved {
		t.Fatalf("rejected: %s", dec.Reason)
	}
}
