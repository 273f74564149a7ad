package gateio

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// SpotAccount is one currency balance in the spot account.
type SpotAccount struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

// AvailableFloat parses the available balance, zero on malformed input.
func (a SpotAccount) AvailableFloat() float64 {
	f, err := strconv.ParseFloat(a.Available, 64)
	if err != nil {
		return 0
	}
	return f
}

// SpotBalances returns all spot account balances.
func (c *Client) SpotBalances(ctx context.Context) ([]SpotAccount, error) {
	var accounts []SpotAccount
	if err := c.do(ctx, http.MethodGet, "/spot/accounts", nil, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SpotBalance returns the balance of a single currency. A currency the
// account has never touched comes back as a zero balance, not an error.
func (c *Client) SpotBalance(ctx context.Context, currency string) (SpotAccount, error) {
	query := url.Values{}
	query.Set("currency", currency)
	var accounts []SpotAccount
	if err := c.do(ctx, http.MethodGet, "/spot/accounts", query, nil, &accounts); err != nil {
		return SpotAccount{}, err
	}
	if len(accounts) == 0 {
		return SpotAccount{Currency: currency, Available: "0", Locked: "0"}, nil
	}
	return accounts[0], nil
}

// AvailableBalance returns the spendable spot balance for a currency.
func (c *Client) AvailableBalance(ctx context.Context, currency string) (float64, error) {
	account, err := c.SpotBalance(ctx, currency)
	if err != nil {
		return 0, err
	}
	return account.AvailableFloat(), nil
}

// MarginAccount is a currency-pair margin account.
type MarginAccount struct {
	CurrencyPair string `json:"currency_pair"`
	Base         struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
		Borrowed  string `json:"borrowed"`
	} `json:"base"`
	Quote struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
		Borrowed  string `json:"borrowed"`
	} `json:"quote"`
}

// MarginBalances returns all margin account balances.
func (c *Client) MarginBalances(ctx context.Context) ([]MarginAccount, error) {
	var accounts []MarginAccount
	if err := c.do(ctx, http.MethodGet, "/margin/accounts", nil, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// FuturesAccount is the perpetual futures account for a settle currency.
type FuturesAccount struct {
	Currency  string `json:"currency"`
	Total     string `json:"total"`
	Available string `json:"available"`
}

// FuturesBalance returns the futures account for a settle currency.
// A 404 means the account was never opened for that settlement.
func (c *Client) FuturesBalance(ctx context.Context, settle string) (*FuturesAccount, error) {
	var account FuturesAccount
	if err := c.do(ctx, http.MethodGet, "/futures/"+settle+"/accounts", nil, nil, &account); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// OptionsAccount is the options trading account.
type OptionsAccount struct {
	User      int64  `json:"user"`
	Total     string `json:"total"`
	Available string `json:"available"`
}

// OptionsBalance returns the options account, nil when not opened.
func (c *Client) OptionsBalance(ctx context.Context) (*OptionsAccount, error) {
	var account OptionsAccount
	if err := c.do(ctx, http.MethodGet, "/options/accounts", nil, nil, &account); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// AccountSnapshot aggregates balances across account types.
type AccountSnapshot struct {
	Spot    []SpotAccount
	Margin  []MarginAccount
	Futures []FuturesAccount
	Options *OptionsAccount
}

// ErrNoAccountData is returned when no account endpoint answered.
var ErrNoAccountData = errors.New("gateio: no account data available")

// Snapshot fetches every account type, tolerating individual failures.
// When nothing succeeds an auth failure is surfaced as-is so callers can
// distinguish bad credentials from an empty account.
func (c *Client) Snapshot(ctx context.Context) (*AccountSnapshot, error) {
	snap := &AccountSnapshot{}
	var authErr error
	ok := false

	if spot, err := c.SpotBalances(ctx); err == nil {
		snap.Spot = spot
		ok = true
	} else if IsAuthError(err) {
		authErr = err
	}

	if margin, err := c.MarginBalances(ctx); err == nil {
		snap.Margin = margin
		ok = true
	} else if IsAuthError(err) {
		authErr = err
	}

	for _, settle := range []string{"usdt", "btc"} {
		fut, err := c.FuturesBalance(ctx, settle)
		if err != nil {
			if IsAuthError(err) {
				authErr = err
			}
			continue
		}
		if fut != nil {
			snap.Futures = append(snap.Futures, *fut)
			ok = true
		}
	}

	if opts, err := c.OptionsBalance(ctx); err == nil {
		snap.Options = opts
		ok = true
	} else if IsAuthError(err) {
		authErr = err
	}

	if !ok {
		if authErr != nil {
			return nil, authErr
		}
		return nil, ErrNoAccountData
	}
	return snap, nil
}
