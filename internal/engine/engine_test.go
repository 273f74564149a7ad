package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tradehook/internal/events"
	"tradehook/internal/position"
	"tradehook/internal/risk"
	"tradehook/internal/signal"
	"tradehook/pkg/config"
	"tradehook/pkg/gateio"
)

type fakeExchange struct {
	balances map[string]float64
	prices   map[string]float64
	orders   []gateio.OrderRequest
	orderErr error
}

func (f *fakeExchange) AvailableBalance(ctx context.Context, currency string) (float64, error) {
	return f.balances[currency], nil
}

func (f *fakeExchange) TickerPrice(ctx context.Context, pair string) (float64, error) {
	p, ok := f.prices[pair]
	if !ok {
		return 0, errors.New("no ticker")
	}
	return p, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req gateio.OrderRequest) (*gateio.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, req)
	return &gateio.Order{ID: "12345", Status: "closed"}, nil
}

type fakeRisk struct {
	decision risk.Decision
}

func (f *fakeRisk) CheckRisk(ctx context.Context, sig *signal.Signal) risk.Decision {
	return f.decision
}

func approveAll() *fakeRisk {
	return &fakeRisk{decision: risk.Decision{Approved: true, Reason: "All risk checks passed"}}
}

func newTestEngine(ex *fakeExchange, rc RiskChecker) *Engine {
	e := New(ex, rc, position.NewLedger(), events.NewBus(), config.DefaultSymbolTable(), Config{
		RiskPercentage:   2,
		MaxPositionValue: 1000,
		MinOrderValue:    3,
	})
	e.Start()
	return e
}

func TestExecuteBuyExplicitAmount(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Price: 50000, Amount: 0.01}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if !res.Success || res.OrderID != "12345" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Amount != 0.01 {
		t.Fatalf("expected explicit amount 0.01, got %v", res.Amount)
	}
	if len(ex.orders) != 1 || ex.orders[0].Type != gateio.OrderTypeLimit || ex.orders[0].Price != 50000 {
		t.Fatalf("expected one limit order at 50000, got %+v", ex.orders)
	}

	pos, ok := e.Ledger().Get("BTC_USDT")
	if !ok {
		t.Fatalf("expected ledger entry after buy")
	}
	if pos.Amount != 0.01 || pos.AvgPrice != 50000 {
		t.Fatalf("ledger entry wrong: %+v", pos)
	}
}

func TestExecuteBuyRiskSized(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"USDT": 10000},
		prices:   map[string]float64{"ETH_USDT": 2000},
	}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "ETH_USDT"}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	// 2% of 10000 = 200 USDT, at 2000 per ETH = 0.1
	if res.Amount != 0.1 {
		t.Fatalf("expected sized amount 0.1, got %v", res.Amount)
	}
	if ex.orders[0].Type != gateio.OrderTypeMarket {
		t.Fatalf("priceless signal should place a market order, got %s", ex.orders[0].Type)
	}
}

func TestSizingNeverExceedsPositionCeiling(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 1000000}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Price: 50000}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if res.Amount*50000 > 1000+1e-9 {
		t.Fatalf("order value %v exceeds ceiling 1000", res.Amount*50000)
	}
}

func TestSizingBelowMinimumRejected(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 100}}
	e := newTestEngine(ex, approveAll())

	// 2% of 100 = 2 USDT, below the 3 USDT floor.
	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Price: 50000}
	_, err := e.ExecuteSignal(context.Background(), sig)
	if err == nil {
		t.Fatalf("expected sizing failure")
	}
	var serr *SizingError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SizingError, got %T: %v", err, err)
	}
	if len(ex.orders) != 0 {
		t.Fatalf("no order should be placed, got %d", len(ex.orders))
	}
}

func TestRiskRejectionReturnsRejectionError(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	rc := &fakeRisk{decision: risk.Decision{Approved: false, Reason: "Insufficient balance: 5.00 USDT"}}
	e := newTestEngine(ex, rc)

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Price: 50000, Amount: 0.01}
	_, err := e.ExecuteSignal(context.Background(), sig)
	if !IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "Insufficient balance") {
		t.Fatalf("rejection should carry the risk reason, got %q", err.Error())
	}
	if len(ex.orders) != 0 {
		t.Fatalf("rejected signal must not reach the exchange")
	}
}

func TestFailedOrderLeavesLedgerUntouched(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"USDT": 5000},
		orderErr: errors.New("exchange down"),
	}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Price: 50000, Amount: 0.01}
	if _, err := e.ExecuteSignal(context.Background(), sig); err == nil {
		t.Fatalf("expected order failure")
	}
	if e.Ledger().Len() != 0 {
		t.Fatalf("ledger must not change when the order fails")
	}
}

func TestExecuteSellDefaultsToFullBalance(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"BTC": 0.5, "USDT": 100}}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("BTC_USDT", 0.5, 40000)

	sig := &signal.Signal{Action: signal.ActionSell, Symbol: "BTC_USDT"}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if res.Amount != 0.5 {
		t.Fatalf("expected full balance 0.5 sold, got %v", res.Amount)
	}
	if ex.orders[0].Side != gateio.SideSell || ex.orders[0].Type != gateio.OrderTypeMarket {
		t.Fatalf("unexpected order: %+v", ex.orders[0])
	}
	if e.Ledger().Len() != 0 {
		t.Fatalf("full sell should clear the ledger entry")
	}
}

func TestExecuteSellPartial(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"BTC": 0.5}}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("BTC_USDT", 0.5, 40000)

	sig := &signal.Signal{Action: signal.ActionSell, Symbol: "BTC_USDT", Amount: 0.2, Price: 45000}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if res.Amount != 0.2 {
		t.Fatalf("expected partial amount 0.2, got %v", res.Amount)
	}
	pos, ok := e.Ledger().Get("BTC_USDT")
	if !ok {
		t.Fatalf("partial sell must keep the position")
	}
	if pos.Amount != 0.3 || pos.AvgPrice != 40000 {
		t.Fatalf("remaining position wrong: %+v", pos)
	}
}

func TestSellReportsRealizedPnL(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"BTC": 0.5}}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("BTC_USDT", 0.5, 40000)

	sig := &signal.Signal{Action: signal.ActionSell, Symbol: "BTC_USDT", Price: 45000}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if !res.Realized {
		t.Fatalf("sell against a tracked position should realize P&L")
	}
	if res.PnL != (45000-40000)*0.5 {
		t.Fatalf("expected P&L 2500, got %v", res.PnL)
	}
}

func TestExecuteCloseIgnoresSignalAmount(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"ETH": 2}}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("ETH_USDT", 2, 2000)

	sig := &signal.Signal{Action: signal.ActionClose, Symbol: "ETH_USDT", Amount: 0.1}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if res.Amount != 2 {
		t.Fatalf("close must sell the whole balance, got %v", res.Amount)
	}
	if ex.orders[0].Type != gateio.OrderTypeMarket {
		t.Fatalf("close should go out as a market order")
	}
}

func TestSellWithNoBalanceFails(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.ActionSell, Symbol: "BTC_USDT"}
	if _, err := e.ExecuteSignal(context.Background(), sig); err == nil {
		t.Fatalf("expected failure with no base balance")
	}
}

func TestUnsupportedAction(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{Action: signal.Action("hedge"), Symbol: "BTC_USDT"}
	_, err := e.ExecuteSignal(context.Background(), sig)
	if err == nil || !strings.Contains(err.Error(), "unsupported action") {
		t.Fatalf("expected unsupported action error, got %v", err)
	}
}

func TestStoppedEngineRejectsSignals(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	e := newTestEngine(ex, approveAll())
	e.Stop()

	sig := &signal.Signal{Action: signal.ActionBuy, Symbol: "BTC_USDT", Amount: 0.01, Price: 50000}
	if _, err := e.ExecuteSignal(context.Background(), sig); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if len(ex.orders) != 0 {
		t.Fatalf("stopped engine must not trade")
	}
}

func TestBuyWithBracketArmsWatcher(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{
		Action: signal.ActionBuy, Symbol: "BTC_USDT",
		Price: 50000, Amount: 0.01,
		StopLoss: 48000, TakeProfit: 55000,
	}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if res.Bracket == nil || !res.Bracket.Armed {
		t.Fatalf("expected armed bracket, got %+v", res.Bracket)
	}
	armed := e.Watcher().Armed()
	if len(armed) != 1 || armed[0].Symbol != "BTC_USDT" {
		t.Fatalf("watcher state wrong: %+v", armed)
	}
}

func TestInvertedBracketDoesNotFailTrade(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"USDT": 5000}}
	e := newTestEngine(ex, approveAll())

	sig := &signal.Signal{
		Action: signal.ActionBuy, Symbol: "BTC_USDT",
		Price: 50000, Amount: 0.01,
		StopLoss: 55000, TakeProfit: 48000,
	}
	res, err := e.ExecuteSignal(context.Background(), sig)
	if err != nil {
		t.Fatalf("trade must succeed even when bracket arming fails: %v", err)
	}
	if res.Bracket == nil || res.Bracket.Armed || res.Bracket.Error == "" {
		t.Fatalf("expected failed bracket with error, got %+v", res.Bracket)
	}
	if len(e.Watcher().Armed()) != 0 {
		t.Fatalf("invalid bracket must not be armed")
	}
}

func TestBracketTriggerClosesPosition(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"USDT": 5000, "BTC": 0.01},
		prices:   map[string]float64{"BTC_USDT": 47000},
	}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("BTC_USDT", 0.01, 50000)
	if err := e.Watcher().Arm(Bracket{Symbol: "BTC_USDT", Amount: 0.01, StopLoss: 48000}); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	e.Watcher().sweep(context.Background())

	if len(ex.orders) != 1 || ex.orders[0].Side != gateio.SideSell {
		t.Fatalf("stop loss should place a sell, got %+v", ex.orders)
	}
	if e.Ledger().Len() != 0 {
		t.Fatalf("triggered stop should close the ledger position")
	}
	if len(e.Watcher().Armed()) != 0 {
		t.Fatalf("bracket must be disarmed after trigger")
	}
}

func TestBracketNotTriggeredInsideRange(t *testing.T) {
	ex := &fakeExchange{
		balances: map[string]float64{"BTC": 0.01},
		prices:   map[string]float64{"BTC_USDT": 50000},
	}
	e := newTestEngine(ex, approveAll())
	if err := e.Watcher().Arm(Bracket{Symbol: "BTC_USDT", Amount: 0.01, StopLoss: 48000, TakeProfit: 55000}); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	e.Watcher().sweep(context.Background())

	if len(ex.orders) != 0 {
		t.Fatalf("price inside the bracket must not trade")
	}
	if len(e.Watcher().Armed()) != 1 {
		t.Fatalf("bracket should stay armed")
	}
}

func TestSellDisarmsBracket(t *testing.T) {
	ex := &fakeExchange{balances: map[string]float64{"BTC": 0.01}}
	e := newTestEngine(ex, approveAll())
	e.Ledger().ApplyBuy("BTC_USDT", 0.01, 50000)
	if err := e.Watcher().Arm(Bracket{Symbol: "BTC_USDT", Amount: 0.01, StopLoss: 48000}); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	sig := &signal.Signal{Action: signal.ActionSell, Symbol: "BTC_USDT"}
	if _, err := e.ExecuteSignal(context.Background(), sig); err != nil {
		t.Fatalf("ExecuteSignal: %v", err)
	}
	if len(e.Watcher().Armed()) != 0 {
		t.Fatalf("manual sell should disarm the bracket")
	}
}
