package signal

import (
	"strings"
	"time"
)

// Action is the trade instruction carried by a signal.
type Action string

const (
	ActionBuy      Action = "buy"
	ActionSell     Action = "sell"
	ActionLong     Action = "long"
	ActionShort    Action = "short"
	ActionClose    Action = "close"
	ActionCloseAll Action = "close_all"
)

// IsBuy reports whether the action opens or adds to a long position.
func (a Action) IsBuy() bool { return a == ActionBuy || a == ActionLong }

// IsSell reports whether the action opens a short or reduces a long.
func (a Action) IsSell() bool { return a == ActionSell || a == ActionShort }

// IsClose reports whether the action flattens the position entirely.
func (a Action) IsClose() bool { return a == ActionClose || a == ActionCloseAll }

// Signal is a canonical trade instruction derived from a webhook payload.
// Symbol is always in BASE_QUOTE form and Action is lower-cased before the
// signal reaches any gate.
type Signal struct {
	Action     Action    `json:"action"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Leverage   float64   `json:"leverage"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	Exchange   string    `json:"exchange"`
	Strategy   string    `json:"strategy"`
	Timestamp  time.Time `json:"timestamp"`
}

// Base returns the base currency of the signal's symbol (BTC for BTC_USDT).
func (s *Signal) Base() string {
	if i := strings.Index(s.Symbol, "_"); i > 0 {
		return s.Symbol[:i]
	}
	return s.Symbol
}

// Quote returns the quote currency of the signal's symbol (USDT for BTC_USDT).
func (s *Signal) Quote() string {
	if i := strings.Index(s.Symbol, "_"); i >= 0 && i+1 < len(s.Symbol) {
		return s.Symbol[i+1:]
	}
	return ""
}
