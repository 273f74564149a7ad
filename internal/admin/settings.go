package admin

// PolicySettings is the mutable administrative policy. Zero limits disable
// the corresponding check; empty allow-lists allow everything.
type PolicySettings struct {
	AllowedSymbols    []string `json:"allowedSymbols"`
	AllowedActions    []string `json:"allowedActions"`
	MinOrderAmount    float64  `json:"minOrderAmount"`
	MaxOrderAmount    float64  `json:"maxOrderAmount"`
	RequireStopLoss   bool     `json:"requireStopLoss"`
	RequireTakeProfit bool     `json:"requireTakeProfit"`
	AutoApprove       bool     `json:"autoApprove"`
	MaxDailyTrades    int      `json:"maxDailyTrades"`
	MaxDrawdownPct    float64  `json:"maxDrawdownPct"`
}

// DefaultSettings is the policy applied when none is persisted.
func DefaultSettings() PolicySettings {
	return PolicySettings{
		AllowedSymbols: []string{"BTC_USDT", "ETH_USDT"},
		AllowedActions: []string{"buy", "sell", "long", "short", "close", "close_all"},
		MinOrderAmount: 0,
		MaxOrderAmount: 0,
		AutoApprove:    true,
		MaxDailyTrades: 20,
		MaxDrawdownPct: 10,
	}
}

// DailyStats tracks today's trading activity. Reset lazily whenever the
// stored date differs from the wall-clock date.
type DailyStats struct {
	Trades int     `json:"trades"`
	Profit float64 `json:"profit"`
	Loss   float64 `json:"loss"`
	Date   string  `json:"date"`
}
