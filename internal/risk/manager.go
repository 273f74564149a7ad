package risk

import (
	"context"
	"fmt"
	"log"
	"sync"

	"tradehook/internal/position"
	"tradehook/internal/signal"
)

// Settings configure the risk checks. Zero values disable a check.
type Settings struct {
	MaxPositionValue float64 `json:"maxPositionValue"`
	MaxDrawdownPct   float64 `json:"maxDrawdownPct"`
	RiskPercentage   float64 `json:"riskPercentage"`
	MaxCorrelated    int     `json:"maxCorrelated"`
	MinQuoteBalance  float64 `json:"minQuoteBalance"`
}

// DefaultSettings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{
		MaxPositionValue: 1000,
		MaxDrawdownPct:   10,
		RiskPercentage:   2,
		MaxCorrelated:    3,
		MinQuoteBalance:  10,
	}
}

// Decision is the risk verdict on a signal.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// BalanceSource reads the available spot balance for a currency.
type BalanceSource interface {
	AvailableBalance(ctx context.Context, currency string) (float64, error)
}

// PriceSource reads the current ticker price for a pair.
type PriceSource interface {
	TickerPrice(ctx context.Context, pair string) (float64, error)
}

// PositionView is read access to the engine's live ledger.
type PositionView interface {
	CountDirection(dir position.Direction) int
}

// Manager is the second gate: read-only checks against exchange data and the
// live ledger. Checks run in order; the first failure wins, and any check
// error converts to a rejection (risk fails closed).
type Manager struct {
	mu        sync.RWMutex
	settings  Settings
	balances  BalanceSource
	prices    PriceSource
	positions PositionView

	drawdown   Policy
	volatility Policy
}

func NewManager(settings Settings, balances BalanceSource, prices PriceSource, positions PositionView) *Manager {
	return &Manager{
		settings:   settings,
		balances:   balances,
		prices:     prices,
		positions:  positions,
		drawdown:   Disabled(),
		volatility: Disabled(),
	}
}

// SetDrawdownPolicy installs the drawdown policy.
func (m *Manager) SetDrawdownPolicy(p Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawdown = p
}

// SetVolatilityPolicy installs the volatility policy.
func (m *Manager) SetVolatilityPolicy(p Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volatility = p
}

// Settings returns a copy of the current risk settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings replaces the risk settings.
func (m *Manager) UpdateSettings(s Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	log.Printf("risk: settings updated (maxPositionValue=%.2f maxCorrelated=%d)", s.MaxPositionValue, s.MaxCorrelated)
}

// CheckRisk evaluates a signal against all risk rules.
func (m *Manager) CheckRisk(ctx context.Context, sig *signal.Signal) Decision {
	m.mu.RLock()
	s := m.settings
	drawdown := m.drawdown
	volatility := m.volatility
	m.mu.RUnlock()

	// 1. Balance floor in quote currency.
	quote := sig.Quote()
	if quote == "" {
		quote = "USDT"
	}
	available, err := m.balances.AvailableBalance(ctx, quote)
	if err != nil {
		return reject(fmt.Sprintf("balance check failed: %v", err))
	}
	if available < s.MinQuoteBalance {
		return reject(fmt.Sprintf("Insufficient balance: %.2f %s available, %.2f required", available, quote, s.MinQuoteBalance))
	}

	// 2. Position notional ceiling when the signal names an amount.
	if sig.Amount > 0 && s.MaxPositionValue > 0 {
		price := sig.Price
		if price <= 0 {
			price, err = m.prices.TickerPrice(ctx, sig.Symbol)
			if err != nil {
				return reject(fmt.Sprintf("price check failed: %v", err))
			}
		}
		notional := sig.Amount * price
		if notional > s.MaxPositionValue {
			return reject(fmt.Sprintf("Position value %.2f exceeds maximum %.2f", notional, s.MaxPositionValue))
		}
	}

	// 3. Drawdown ceiling (pluggable; Disabled skips).
	if dec, evaluated := evaluate(ctx, drawdown, sig); evaluated && !dec.Approved {
		return dec
	}

	// 4. Correlation: cap concurrently open same-direction positions.
	if s.MaxCorrelated > 0 && m.positions != nil {
		if dir, opening := direction(sig.Action); opening {
			open := m.positions.CountDirection(dir)
			if open+1 > s.MaxCorrelated {
				return reject(fmt.Sprintf("Too many open %s positions: %d of %d", dir, open, s.MaxCorrelated))
			}
		}
	}

	// 5. Volatility ceiling (pluggable; Disabled skips).
	if dec, evaluated := evaluate(ctx, volatility, sig); evaluated && !dec.Approved {
		return dec
	}

	return Decision{Approved: true, Reason: "Risk checks passed"}
}

func reject(reason string) Decision {
	return Decision{Approved: false, Reason: reason}
}

// direction maps an action to the ledger direction it would open.
// Close actions reduce exposure and never count against correlation.
func direction(a signal.Action) (position.Direction, bool) {
	switch {
	case a.IsBuy():
		return position.Long, true
	case a.IsSell():
		return position.Short, true
	default:
		return "", false
	}
}
