package gateio

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c := New(Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		BaseURL:   ts.URL,
	})
	return c, ts
}

func TestTimestampFormat(t *testing.T) {
	c := New(Config{APIKey: "k", APISecret: "s"})

	c.now = func() time.Time { return time.Unix(1700000000, 123456000) }
	if got := c.timestamp(); got != "1700000000.123456" {
		t.Errorf("timestamp = %q, want 1700000000.123456", got)
	}

	// Trailing zeros trimmed.
	c.now = func() time.Time { return time.Unix(1700000000, 500000000) }
	if got := c.timestamp(); got != "1700000000.5" {
		t.Errorf("timestamp = %q, want 1700000000.5", got)
	}

	// Whole seconds carry no fraction at all.
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	if got := c.timestamp(); got != "1700000000" {
		t.Errorf("timestamp = %q, want 1700000000", got)
	}
}

func TestSignedRequestHeaders(t *testing.T) {
	var gotKey, gotSign, gotTS, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("KEY")
		gotSign = r.Header.Get("SIGN")
		gotTS = r.Header.Get("Timestamp")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"currency":"USDT","available":"100","locked":"0"}]`))
	})

	if _, err := c.SpotBalance(context.Background(), "USDT"); err != nil {
		t.Fatalf("SpotBalance: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("KEY header = %q", gotKey)
	}
	if gotQuery != "currency=USDT" {
		t.Errorf("query = %q", gotQuery)
	}

	// Recompute the expected signature from the observed timestamp.
	canonical := strings.Join([]string{"GET", "/api/v4/spot/accounts", "currency=USDT", "", gotTS}, "\n")
	mac := hmac.New(sha512.New, []byte("test-secret"))
	mac.Write([]byte(canonical))
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSign != want {
		t.Errorf("SIGN = %q, want %q", gotSign, want)
	}
}

func TestQuerySortedBeforeSigning(t *testing.T) {
	var rawQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})

	if _, err := c.MyTrades(context.Background(), "BTC_USDT", 5); err != nil {
		t.Fatalf("MyTrades: %v", err)
	}
	// url.Values.Encode sorts keys lexicographically.
	if rawQuery != "currency_pair=BTC_USDT&limit=5" {
		t.Errorf("query = %q, want sorted order", rawQuery)
	}
}

func TestPlaceOrderBody(t *testing.T) {
	var body string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, r.ContentLength)
		r.Body.Read(b)
		body = string(b)
		w.Write([]byte(`{"id":"12345","status":"closed","currency_pair":"BTC_USDT","side":"buy","filled_amount":"0.01","avg_deal_price":"50000"}`))
	})

	order, err := c.PlaceOrder(context.Background(), OrderRequest{
		CurrencyPair: "BTC_USDT",
		Side:         SideBuy,
		Type:         OrderTypeLimit,
		Amount:       0.01,
		Price:        50000,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.ID != "12345" {
		t.Errorf("order ID = %q", order.ID)
	}
	if strings.Contains(body, " ") || strings.Contains(body, "\n") {
		t.Errorf("body not compact: %q", body)
	}
	for _, want := range []string{`"currency_pair":"BTC_USDT"`, `"side":"buy"`, `"amount":"0.01"`, `"price":"50000"`, `"account":"spot"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %q", want, body)
		}
	}
}

func TestAPIErrorClassification(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"label":"INVALID_KEY"}`))
	})

	_, err := c.SpotBalances(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestTransportErrorClassification(t *testing.T) {
	c := New(Config{APIKey: "k", APISecret: "s", BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	_, err := c.SpotBalances(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Errorf("expected TransportError, got %T: %v", err, err)
	}
	if IsAuthError(err) {
		t.Error("transport error misclassified as auth error")
	}
}

func TestFuturesPositions404Skipped(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/futures/usdt/") {
			w.Write([]byte(`[{"contract":"BTC_USDT","size":2,"entry_price":"50000"}]`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"label":"USER_NOT_FOUND"}`))
	})

	positions, err := c.FuturesPositions(context.Background())
	if err != nil {
		t.Fatalf("FuturesPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Contract != "BTC_USDT" || positions[0].Settle != "usdt" {
		t.Errorf("positions = %+v", positions)
	}
}

func TestSnapshotAuthFailureDistinct(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"label":"FORBIDDEN"}`))
	})

	_, err := c.Snapshot(context.Background())
	if !IsAuthError(err) {
		t.Errorf("expected auth error from snapshot, got %v", err)
	}
}

func TestTickerPrice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"currency_pair":"BTC_USDT","last":"50123.4"}]`))
	})

	price, err := c.TickerPrice(context.Background(), "BTC_USDT")
	if err != nil {
		t.Fatalf("TickerPrice: %v", err)
	}
	if price != 50123.4 {
		t.Errorf("price = %v", price)
	}
}
