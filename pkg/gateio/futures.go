package gateio

import (
	"context"
	"net/http"
)

// settleCurrencies are the settlement currencies iterated when listing
// futures positions.
var settleCurrencies = []string{"usdt", "btc", "usd"}

// FuturesPosition is an open perpetual futures position.
type FuturesPosition struct {
	Contract   string  `json:"contract"`
	Size       float64 `json:"size"` // negative for shorts
	Leverage   string  `json:"leverage"`
	EntryPrice string  `json:"entry_price"`
	MarkPrice  string  `json:"mark_price"`
	Margin     string  `json:"margin"`
	Settle     string  `json:"-"`
}

// FuturesPositions lists open positions across all settlement currencies.
// A 404 for a settle currency means no positions there, not a failure.
func (c *Client) FuturesPositions(ctx context.Context) ([]FuturesPosition, error) {
	var all []FuturesPosition
	for _, settle := range settleCurrencies {
		var positions []FuturesPosition
		err := c.do(ctx, http.MethodGet, "/futures/"+settle+"/positions", nil, nil, &positions)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, p := range positions {
			if p.Size == 0 {
				continue
			}
			p.Settle = settle
			all = append(all, p)
		}
	}
	return all, nil
}
