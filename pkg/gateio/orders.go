package gateio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Order sides and types on the spot API.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// OrderRequest is a spot order to be placed.
type OrderRequest struct {
	CurrencyPair string
	Side         string // buy or sell
	Type         string // limit or market
	Amount       float64
	Price        float64 // required for limit orders
	ClientID     string  // optional t- prefixed text id
}

type orderPayload struct {
	Text         string `json:"text,omitempty"`
	CurrencyPair string `json:"currency_pair"`
	Type         string `json:"type"`
	Account      string `json:"account"`
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	Price        string `json:"price,omitempty"`
	TimeInForce  string `json:"time_in_force,omitempty"`
}

// Order is the exchange's view of a placed order.
type Order struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	CurrencyPair string `json:"currency_pair"`
	Status       string `json:"status"` // open, closed, cancelled
	Type         string `json:"type"`
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	Price        string `json:"price"`
	FilledAmount string `json:"filled_amount"`
	AvgDealPrice string `json:"avg_deal_price"`
	CreateTime   string `json:"create_time"`
}

// PlaceOrder submits a spot order. Market orders are sent IOC as the
// exchange requires; limit orders default to GTC.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.CurrencyPair == "" {
		return nil, fmt.Errorf("gateio: order missing currency pair")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("gateio: order amount must be positive, got %v", req.Amount)
	}

	payload := orderPayload{
		Text:         req.ClientID,
		CurrencyPair: req.CurrencyPair,
		Type:         req.Type,
		Account:      "spot",
		Side:         req.Side,
		Amount:       formatFloat(req.Amount),
	}
	switch req.Type {
	case OrderTypeMarket:
		payload.TimeInForce = "ioc"
	default:
		payload.Type = OrderTypeLimit
		payload.Price = formatFloat(req.Price)
		payload.TimeInForce = "gtc"
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/spot/orders", nil, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// OpenOrders lists open orders, optionally filtered by currency pair.
func (c *Client) OpenOrders(ctx context.Context, pair string) ([]Order, error) {
	query := url.Values{}
	query.Set("status", "open")
	if pair != "" {
		query.Set("currency_pair", pair)
	}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/spot/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Trade is an executed fill from trade history.
type Trade struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	CurrencyPair string `json:"currency_pair"`
	Side         string `json:"side"`
	Amount       string `json:"amount"`
	Price        string `json:"price"`
	Fee          string `json:"fee"`
	FeeCurrency  string `json:"fee_currency"`
	CreateTime   string `json:"create_time"`
}

// MyTrades returns the account's trade history for a pair.
func (c *Client) MyTrades(ctx context.Context, pair string, limit int) ([]Trade, error) {
	query := url.Values{}
	query.Set("currency_pair", pair)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var trades []Trade
	if err := c.do(ctx, http.MethodGet, "/spot/my_trades", query, nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

type ticker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
}

// TickerPrice returns the last traded price for a pair.
func (c *Client) TickerPrice(ctx context.Context, pair string) (float64, error) {
	query := url.Values{}
	query.Set("currency_pair", pair)
	var tickers []ticker
	if err := c.do(ctx, http.MethodGet, "/spot/tickers", query, nil, &tickers); err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("gateio: no ticker for %s", pair)
	}
	price, err := strconv.ParseFloat(tickers[0].Last, 64)
	if err != nil {
		return 0, fmt.Errorf("gateio: parse ticker price %q: %w", tickers[0].Last, err)
	}
	return price, nil
}
