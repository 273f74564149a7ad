package position

import (
	"sync"
	"time"
)

// Direction of an open position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Position is the in-memory record for one symbol. Amount is always >= 0;
// direction carries the side the position was opened on.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Amount     float64   `json:"amount"`
	AvgPrice   float64   `json:"avg_price"`
	TotalCost  float64   `json:"total_cost"`
	LastUpdate time.Time `json:"last_update"`
}

// Ledger is the mutex-guarded per-symbol position store. Only the trading
// engine mutates it; gates read it.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]Position
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]Position)}
}

// Get returns the position for a symbol and whether one exists.
func (l *Ledger) Get(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	return p, ok
}

// All returns a snapshot of every open position.
func (l *Ledger) All() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out
}

// CountDirection returns the number of open positions on the given side.
func (l *Ledger) CountDirection(dir Direction) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, p := range l.positions {
		if p.Direction == dir {
			n++
		}
	}
	return n
}

// ApplyBuy records a filled buy, creating the position or folding the fill
// into the weighted-average entry price.
func (l *Ledger) ApplyBuy(symbol string, amount, price float64) Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		p = Position{Symbol: symbol, Direction: Long}
	}
	cost := amount * price
	newAmount := p.Amount + amount
	p.TotalCost += cost
	p.Amount = newAmount
	if newAmount > 0 {
		p.AvgPrice = p.TotalCost / newAmount
	}
	p.LastUpdate = time.Now().UTC()
	l.positions[symbol] = p
	return p
}

// ApplySell records a filled sell. The entry is removed when the remaining
// amount reaches zero; otherwise total cost is scaled down proportionally
// to the fraction sold, leaving the average price unchanged.
func (l *Ledger) ApplySell(symbol string, amount float64) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	if amount >= p.Amount {
		delete(l.positions, symbol)
		return Position{Symbol: symbol}, false
	}

	fraction := amount / p.Amount
	p.Amount -= amount
	p.TotalCost *= 1 - fraction
	p.LastUpdate = time.Now().UTC()
	l.positions[symbol] = p
	return p, true
}

// Remove deletes a symbol's entry outright (full close).
func (l *Ledger) Remove(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.positions, symbol)
}

// Len returns the number of open positions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}
