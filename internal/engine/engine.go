package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradehook/internal/events"
	"tradehook/internal/position"
	"tradehook/internal/risk"
	"tradehook/internal/signal"
	"tradehook/pkg/config"
	"tradehook/pkg/gateio"
)

// Stage is a signal's position in the execution state machine.
type Stage string

const (
	StageReceived    Stage = "RECEIVED"
	StageRiskChecked Stage = "RISK_CHECKED"
	StageSized       Stage = "SIZED"
	StageExecuting   Stage = "EXECUTING"
	StageSucceeded   Stage = "SUCCEEDED"
	StageFailed      Stage = "FAILED"
)

// Exchange is the slice of the REST client the engine needs.
type Exchange interface {
	AvailableBalance(ctx context.Context, currency string) (float64, error)
	TickerPrice(ctx context.Context, pair string) (float64, error)
	PlaceOrder(ctx context.Context, req gateio.OrderRequest) (*gateio.Order, error)
}

// RiskChecker is the risk gate invoked inside the engine.
type RiskChecker interface {
	CheckRisk(ctx context.Context, sig *signal.Signal) risk.Decision
}

// Config holds the engine's sizing parameters.
type Config struct {
	RiskPercentage   float64 // % of quote balance committed per sized order
	MaxPositionValue float64 // quote-currency ceiling per order
	MinOrderValue    float64 // quote-currency floor per order
}

// ExecutionResult is the outcome of a successfully executed signal.
type ExecutionResult struct {
	Success    bool           `json:"success"`
	OrderID    string         `json:"orderId"`
	Symbol     string         `json:"symbol"`
	Action     string         `json:"action"`
	Amount     float64        `json:"amount"`
	Price      float64        `json:"price"`
	Status     string         `json:"status"`
	PnL        float64        `json:"pnl,omitempty"`
	Realized   bool           `json:"realized,omitempty"`
	ExecutedAt time.Time      `json:"executedAt"`
	Bracket    *BracketResult `json:"bracket,omitempty"`
}

// BracketResult reports the separable SL/TP arming step. A bracket failure
// never unwinds the primary order.
type BracketResult struct {
	Armed bool   `json:"armed"`
	Error string `json:"error,omitempty"`
}

// Engine orchestrates signal execution: risk gate, order sizing, dispatch,
// and the position ledger. It is the only component that mutates the ledger.
type Engine struct {
	exchange Exchange
	riskMgr  RiskChecker
	ledger   *position.Ledger
	bus      *events.Bus
	symbols  *config.SymbolTable
	watcher  *Watcher
	cfg      Config

	mu      sync.RWMutex
	running bool
}

func New(exchange Exchange, riskMgr RiskChecker, ledger *position.Ledger, bus *events.Bus, symbols *config.SymbolTable, cfg Config) *Engine {
	e := &Engine{
		exchange: exchange,
		riskMgr:  riskMgr,
		ledger:   ledger,
		bus:      bus,
		symbols:  symbols,
		cfg:      cfg,
	}
	e.watcher = NewWatcher(e)
	return e
}

// Ledger exposes the position store for read access (API, risk correlation).
func (e *Engine) Ledger() *position.Ledger { return e.ledger }

// Watcher exposes the bracket watcher for wiring its run loop.
func (e *Engine) Watcher() *Watcher { return e.watcher }

// Start marks the engine as accepting signals.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	log.Printf("engine: started")
}

// Stop rejects further signals. In-flight executions finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	log.Printf("engine: stopped")
}

// Running reports whether the engine accepts signals.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// ExecuteSignal runs a gate-approved signal through risk checking, sizing,
// and order placement. The ledger mutates only after the exchange accepts
// the order. A *RejectionError means the risk gate declined; any other error
// is an execution failure.
func (e *Engine) ExecuteSignal(ctx context.Context, sig *signal.Signal) (*ExecutionResult, error) {
	if !e.Running() {
		return nil, ErrStopped
	}

	log.Printf("engine: %s %s %s amount=%v", StageReceived, sig.Action, sig.Symbol, sig.Amount)

	dec := e.riskMgr.CheckRisk(ctx, sig)
	if !dec.Approved {
		e.publishRejected(sig, dec.Reason)
		return nil, &RejectionError{Reason: dec.Reason}
	}
	log.Printf("engine: %s %s %s", StageRiskChecked, sig.Action, sig.Symbol)

	result, err := e.dispatch(ctx, sig)
	if err != nil {
		log.Printf("engine: %s %s %s: %v", StageFailed, sig.Action, sig.Symbol, err)
		e.publishFailed(sig, err)
		return nil, err
	}

	log.Printf("engine: %s %s %s amount=%v price=%v order=%s",
		StageSucceeded, result.Action, result.Symbol, result.Amount, result.Price, result.OrderID)
	e.publishExecuted(result)
	return result, nil
}

func (e *Engine) dispatch(ctx context.Context, sig *signal.Signal) (*ExecutionResult, error) {
	switch {
	case sig.Action.IsBuy():
		return e.executeBuy(ctx, sig)
	case sig.Action.IsSell():
		return e.executeSell(ctx, sig, false)
	case sig.Action.IsClose():
		return e.executeSell(ctx, sig, true)
	default:
		return nil, fmt.Errorf("unsupported action %q", sig.Action)
	}
}

func (e *Engine) executeBuy(ctx context.Context, sig *signal.Signal) (*ExecutionResult, error) {
	price := sig.Price
	if price <= 0 {
		p, err := e.exchange.TickerPrice(ctx, sig.Symbol)
		if err != nil {
			return nil, fmt.Errorf("fetch ticker: %w", err)
		}
		price = p
	}

	amount, err := e.orderAmount(ctx, sig, price)
	if err != nil {
		return nil, err
	}
	log.Printf("engine: %s %s amount=%v price=%v", StageSized, sig.Symbol, amount, price)

	req := gateio.OrderRequest{
		CurrencyPair: sig.Symbol,
		Side:         gateio.SideBuy,
		Amount:       amount,
		ClientID:     clientID(),
	}
	if sig.Price > 0 {
		req.Type = gateio.OrderTypeLimit
		req.Price = sig.Price
	} else {
		req.Type = gateio.OrderTypeMarket
	}

	log.Printf("engine: %s %s", StageExecuting, sig.Symbol)
	order, err := e.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place buy order: %w", err)
	}

	fillPrice := dealPrice(order, price)
	e.ledger.ApplyBuy(sig.Symbol, amount, fillPrice)

	result := &ExecutionResult{
		Success:    true,
		OrderID:    order.ID,
		Symbol:     sig.Symbol,
		Action:     string(sig.Action),
		Amount:     amount,
		Price:      fillPrice,
		Status:     order.Status,
		ExecutedAt: time.Now().UTC(),
	}

	// Bracket arming is a separable second step with its own outcome.
	if sig.StopLoss > 0 || sig.TakeProfit > 0 {
		result.Bracket = e.armBracket(sig, amount)
	}
	return result, nil
}

// executeSell handles sell/short and close/close_all. Closes always sell the
// entire available base balance; plain sells default to it when the signal
// names no amount.
func (e *Engine) executeSell(ctx context.Context, sig *signal.Signal, closeAll bool) (*ExecutionResult, error) {
	base := sig.Base()
	available, err := e.exchange.AvailableBalance(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("fetch %s balance: %w", base, err)
	}
	if available <= 0 {
		return nil, fmt.Errorf("no %s balance to sell", base)
	}

	amount := available
	if !closeAll && sig.Amount > 0 && sig.Amount < available {
		amount = sig.Amount
	}
	params := e.symbols.Params(sig.Symbol)
	amount = roundDown(amount, params.Precision)
	if amount <= 0 {
		return nil, fmt.Errorf("sellable %s amount rounds to zero", base)
	}
	log.Printf("engine: %s %s amount=%v", StageSized, sig.Symbol, amount)

	req := gateio.OrderRequest{
		CurrencyPair: sig.Symbol,
		Side:         gateio.SideSell,
		Amount:       amount,
		ClientID:     clientID(),
	}
	if sig.Price > 0 && !closeAll {
		req.Type = gateio.OrderTypeLimit
		req.Price = sig.Price
	} else {
		req.Type = gateio.OrderTypeMarket
	}

	log.Printf("engine: %s %s", StageExecuting, sig.Symbol)
	order, err := e.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place sell order: %w", err)
	}

	fillPrice := sig.Price
	if fillPrice <= 0 {
		fillPrice = dealPrice(order, 0)
	}

	result := &ExecutionResult{
		Success:    true,
		OrderID:    order.ID,
		Symbol:     sig.Symbol,
		Action:     string(sig.Action),
		Amount:     amount,
		Price:      fillPrice,
		Status:     order.Status,
		ExecutedAt: time.Now().UTC(),
	}
	if pos, ok := e.ledger.Get(sig.Symbol); ok && fillPrice > 0 {
		result.PnL = (fillPrice - pos.AvgPrice) * amount
		result.Realized = true
	}

	e.ledger.ApplySell(sig.Symbol, amount)
	e.watcher.Disarm(sig.Symbol)
	return result, nil
}

func (e *Engine) armBracket(sig *signal.Signal, amount float64) *BracketResult {
	err := e.watcher.Arm(Bracket{
		Symbol:     sig.Symbol,
		Amount:     amount,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	})
	if err != nil {
		log.Printf("engine: bracket arming failed for %s: %v", sig.Symbol, err)
		return &BracketResult{Armed: false, Error: err.Error()}
	}
	return &BracketResult{Armed: true}
}

func (e *Engine) publishExecuted(res *ExecutionResult) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventSignalExecuted, events.SignalEvent{
		Topic:     events.EventSignalExecuted,
		Symbol:    res.Symbol,
		Action:    res.Action,
		Amount:    res.Amount,
		Price:     res.Price,
		OrderID:   res.OrderID,
		Timestamp: res.ExecutedAt,
	})
}

func (e *Engine) publishRejected(sig *signal.Signal, reason string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventSignalRejected, events.SignalEvent{
		Topic:     events.EventSignalRejected,
		Symbol:    sig.Symbol,
		Action:    string(sig.Action),
		Reason:    reason,
		Strategy:  sig.Strategy,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Engine) publishFailed(sig *signal.Signal, err error) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventSignalFailed, events.SignalEvent{
		Topic:     events.EventSignalFailed,
		Symbol:    sig.Symbol,
		Action:    string(sig.Action),
		Reason:    err.Error(),
		Strategy:  sig.Strategy,
		Timestamp: time.Now().UTC(),
	})
}

// dealPrice extracts the average fill price, falling back to the reference
// price when the exchange reports none (open limit orders).
func dealPrice(order *gateio.Order, fallback float64) float64 {
	if order.AvgDealPrice != "" {
		if p, err := strconv.ParseFloat(order.AvgDealPrice, 64); err == nil && p > 0 {
			return p
		}
	}
	if order.Price != "" {
		if p, err := strconv.ParseFloat(order.Price, 64); err == nil && p > 0 {
			return p
		}
	}
	return fallback
}

func clientID() string {
	// Gate requires text ids to start with "t-".
	return "t-" + uuid.NewString()[:18]
}
