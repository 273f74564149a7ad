package admin

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tradehook/internal/signal"
)

// Decision is the gate's verdict on a signal.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Gate enforces administrative policy ahead of execution: symbol and action
// allow-lists, amount bounds, required protective fields, and a rolling
// daily trade counter. Checks run in order; the first failure wins. The only
// side effect is incrementing the daily counter on approval.
type Gate struct {
	mu       sync.Mutex
	settings PolicySettings
	stats    DailyStats
	now      func() time.Time
}

func NewGate(settings PolicySettings) *Gate {
	g := &Gate{
		settings: settings,
		now:      time.Now,
	}
	g.stats.Date = g.today()
	return g
}

func (g *Gate) today() string {
	return g.now().Format("2006-01-02")
}

// resetIfNewDay zeroes the daily counters when the wall-clock date moved on.
// Lazy, check-on-access; callers must hold the mutex.
func (g *Gate) resetIfNewDay() {
	today := g.today()
	if g.stats.Date == today {
		return
	}
	if g.stats.Trades > 0 {
		log.Printf("admin: daily stats reset (was %d trades on %s)", g.stats.Trades, g.stats.Date)
	}
	g.stats = DailyStats{Date: today}
}

// Validate applies the policy checks to a signal.
func (g *Gate) Validate(sig *signal.Signal) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetIfNewDay()
	s := g.settings

	if s.MaxDailyTrades > 0 && g.stats.Trades >= s.MaxDailyTrades {
		return Decision{Reason: fmt.Sprintf("Daily trade limit reached (%d/%d)", g.stats.Trades, s.MaxDailyTrades)}
	}

	if len(s.AllowedSymbols) > 0 && !contains(s.AllowedSymbols, sig.Symbol) {
		return Decision{Reason: fmt.Sprintf("Symbol %s not allowed", sig.Symbol)}
	}

	action := strings.ToLower(string(sig.Action))
	if len(s.AllowedActions) > 0 && !contains(s.AllowedActions, action) {
		return Decision{Reason: fmt.Sprintf("Action %s not allowed", action)}
	}

	if sig.Amount > 0 {
		if s.MinOrderAmount > 0 && sig.Amount < s.MinOrderAmount {
			return Decision{Reason: fmt.Sprintf("Amount %v below minimum %v", sig.Amount, s.MinOrderAmount)}
		}
		if s.MaxOrderAmount > 0 && sig.Amount > s.MaxOrderAmount {
			return Decision{Reason: fmt.Sprintf("Amount %v above maximum %v", sig.Amount, s.MaxOrderAmount)}
		}
	}

	if s.RequireStopLoss && sig.StopLoss == 0 {
		return Decision{Reason: "Stop loss required by policy"}
	}
	if s.RequireTakeProfit && sig.TakeProfit == 0 {
		return Decision{Reason: "Take profit required by policy"}
	}

	g.stats.Trades++

	// There is no human-in-the-loop queue: any signal that violates no rule
	// is approved, the flag only changes the recorded reason.
	if s.AutoApprove {
		return Decision{Approved: true, Reason: "Auto-approved"}
	}
	return Decision{Approved: true, Reason: "Manually approved"}
}

// RecordResult folds a realized trade outcome into the daily stats.
func (g *Gate) RecordResult(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	if pnl >= 0 {
		g.stats.Profit += pnl
	} else {
		g.stats.Loss += -pnl
	}
}

// Stats returns a snapshot of today's counters, resetting first if stale.
func (g *Gate) Stats() DailyStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	return g.stats
}

// Settings returns a copy of the current policy.
func (g *Gate) Settings() PolicySettings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings
}

// UpdateSettings replaces the policy.
func (g *Gate) UpdateSettings(s PolicySettings) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings = s
	log.Printf("admin: policy settings updated (symbols=%d actions=%d autoApprove=%v)",
		len(s.AllowedSymbols), len(s.AllowedActions), s.AutoApprove)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
