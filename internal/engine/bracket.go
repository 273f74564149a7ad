package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tradehook/internal/events"
	"tradehook/internal/signal"
)

// Bracket is an armed stop-loss / take-profit pair for an open position.
type Bracket struct {
	Symbol     string    `json:"symbol"`
	Amount     float64   `json:"amount"`
	StopLoss   float64   `json:"stopLoss,omitempty"`
	TakeProfit float64   `json:"takeProfit,omitempty"`
	ArmedAt    time.Time `json:"armedAt"`
}

// Watcher polls tickers for armed brackets and closes positions whose
// stop-loss or take-profit level is hit. One bracket per symbol; re-arming
// replaces the previous one.
type Watcher struct {
	engine *Engine

	mu       sync.Mutex
	brackets map[string]Bracket
}

func NewWatcher(e *Engine) *Watcher {
	return &Watcher{
		engine:   e,
		brackets: make(map[string]Bracket),
	}
}

// Arm registers a bracket for a symbol.
func (w *Watcher) Arm(b Bracket) error {
	if b.StopLoss <= 0 && b.TakeProfit <= 0 {
		return fmt.Errorf("bracket for %s has no trigger levels", b.Symbol)
	}
	if b.StopLoss > 0 && b.TakeProfit > 0 && b.StopLoss >= b.TakeProfit {
		return fmt.Errorf("bracket for %s: stop loss %v must be below take profit %v", b.Symbol, b.StopLoss, b.TakeProfit)
	}
	b.ArmedAt = time.Now().UTC()

	w.mu.Lock()
	w.brackets[b.Symbol] = b
	w.mu.Unlock()

	log.Printf("watcher: armed %s SL=%v TP=%v", b.Symbol, b.StopLoss, b.TakeProfit)
	if w.engine.bus != nil {
		w.engine.bus.Publish(events.EventBracketArmed, events.SignalEvent{
			Topic:     events.EventBracketArmed,
			Symbol:    b.Symbol,
			Amount:    b.Amount,
			Timestamp: b.ArmedAt,
		})
	}
	return nil
}

// Disarm removes any bracket for the symbol.
func (w *Watcher) Disarm(symbol string) {
	w.mu.Lock()
	_, had := w.brackets[symbol]
	delete(w.brackets, symbol)
	w.mu.Unlock()
	if had {
		log.Printf("watcher: disarmed %s", symbol)
	}
}

// Armed returns the currently armed brackets.
func (w *Watcher) Armed() []Bracket {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Bracket, 0, len(w.brackets))
	for _, b := range w.brackets {
		out = append(out, b)
	}
	return out
}

// Run polls prices at the given interval until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("watcher: running, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("watcher: stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	for _, b := range w.Armed() {
		price, err := w.engine.exchange.TickerPrice(ctx, b.Symbol)
		if err != nil {
			log.Printf("watcher: ticker %s: %v", b.Symbol, err)
			continue
		}
		w.check(ctx, b, price)
	}
}

func (w *Watcher) check(ctx context.Context, b Bracket, price float64) {
	var trigger string
	switch {
	case b.StopLoss > 0 && price <= b.StopLoss:
		trigger = "stop_loss"
	case b.TakeProfit > 0 && price >= b.TakeProfit:
		trigger = "take_profit"
	default:
		return
	}

	log.Printf("watcher: %s triggered for %s at %v", trigger, b.Symbol, price)

	// Disarm before closing so a slow close cannot re-trigger.
	w.Disarm(b.Symbol)

	sig := &signal.Signal{
		Action:   signal.ActionClose,
		Symbol:   b.Symbol,
		Strategy: trigger,
	}
	if _, err := w.engine.ExecuteSignal(ctx, sig); err != nil {
		log.Printf("watcher: close %s after %s failed: %v", b.Symbol, trigger, err)
		return
	}

	if w.engine.bus != nil {
		w.engine.bus.Publish(events.EventBracketTriggered, events.SignalEvent{
			Topic:     events.EventBracketTriggered,
			Symbol:    b.Symbol,
			Action:    trigger,
			Price:     price,
			Amount:    b.Amount,
			Timestamp: time.Now().UTC(),
		})
	}
}
