package gateio

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const apiPrefix = "/api/v4"

// Config holds Gate.io credentials and transport settings.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string        // defaults to the public endpoint
	Timeout   time.Duration // per-call bound, defaults to 10s
}

// Client is a signed Gate.io v4 REST client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time // overridable in tests
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.gateio.ws"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		// 200 req/10s is the documented spot order limit; stay well under.
		limiter: rate.NewLimiter(rate.Limit(15), 30),
		now:     time.Now,
	}
}

// timestamp returns seconds since epoch with microsecond fractional
// precision, trailing zeros trimmed.
func (c *Client) timestamp() string {
	micros := c.now().UnixMicro()
	return strconv.FormatFloat(float64(micros)/1e6, 'f', -1, 64)
}

// sign builds the canonical string METHOD\nPATH\nSORTED_QUERY\nBODY\nTIMESTAMP
// and returns its hex-encoded HMAC-SHA512.
func (c *Client) sign(method, path, query, body, timestamp string) string {
	canonical := strings.Join([]string{method, path, query, body, timestamp}, "\n")
	mac := hmac.New(sha512.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// do performs a signed request. query is sorted lexicographically before
// signing (url.Values.Encode already sorts by key); bodies are serialized
// compactly with no extra whitespace.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("gateio: API key/secret required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	fullPath := apiPrefix + path
	encoded := ""
	if query != nil {
		encoded = query.Encode()
	}

	var bodyJSON string
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateio: marshal body: %w", err)
		}
		bodyJSON = string(data)
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + fullPath
	if encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("gateio: build request: %w", err)
	}

	ts := c.timestamp()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("KEY", c.cfg.APIKey)
	req.Header.Set("Timestamp", ts)
	req.Header.Set("SIGN", c.sign(method, fullPath, encoded, bodyJSON, ts))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + fullPath, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return &TransportError{Op: "read " + fullPath, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Status: res.StatusCode, Path: fullPath, Body: strings.TrimSpace(string(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("gateio: decode %s response: %w", fullPath, err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
