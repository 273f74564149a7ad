package signal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when a payload field is missing or unparseable.
const (
	DefaultAction   = ActionBuy
	DefaultSymbol   = "BTC_USDT"
	DefaultLeverage = 1.0
	DefaultExchange = "spot"
	DefaultStrategy = "manual"
)

// quoteCurrencies is the fixed suffix-match list for symbols arriving without
// a separator (e.g. "btcusdt"). Longest first so USDT wins over USD.
var quoteCurrencies = []string{"USDT", "USDC", "BUSD", "TUSD", "USD", "BTC", "ETH", "BNB"}

// fieldSynonyms maps canonical field names to their accepted aliases in
// priority order. First present alias wins.
var fieldSynonyms = map[string][]string{
	"action":      {"action", "side", "order"},
	"symbol":      {"symbol", "ticker", "pair"},
	"price":       {"price", "close"},
	"amount":      {"amount", "contracts", "size"},
	"leverage":    {"leverage"},
	"stop_loss":   {"stop_loss", "sl"},
	"take_profit": {"take_profit", "tp"},
	"comment":     {"comment", "message"},
	"exchange":    {"exchange"},
	"strategy":    {"strategy"},
}

// Normalize turns a raw webhook body into a canonical Signal. It never fails:
// fields that cannot be recognized fall back to documented defaults.
func Normalize(raw []byte) Signal {
	fields := parsePayload(raw)

	sig := Signal{
		Action:    DefaultAction,
		Symbol:    DefaultSymbol,
		Leverage:  DefaultLeverage,
		Exchange:  DefaultExchange,
		Strategy:  DefaultStrategy,
		Timestamp: time.Now().UTC(),
	}

	if v, ok := pick(fields, "action"); ok {
		sig.Action = Action(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := pick(fields, "symbol"); ok && strings.TrimSpace(v) != "" {
		sig.Symbol = FormatSymbol(v)
	}
	if v, ok := pickFloat(fields, "price"); ok && v >= 0 {
		sig.Price = v
	}
	if v, ok := pickFloat(fields, "amount"); ok && v >= 0 {
		sig.Amount = v
	}
	if v, ok := pickFloat(fields, "leverage"); ok && v > 0 {
		sig.Leverage = v
	}
	if v, ok := pickFloat(fields, "stop_loss"); ok && v > 0 {
		sig.StopLoss = v
	}
	if v, ok := pickFloat(fields, "take_profit"); ok && v > 0 {
		sig.TakeProfit = v
	}
	if v, ok := pick(fields, "comment"); ok {
		sig.Comment = strings.TrimSpace(v)
	}
	if v, ok := pick(fields, "exchange"); ok && strings.TrimSpace(v) != "" {
		sig.Exchange = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := pick(fields, "strategy"); ok && strings.TrimSpace(v) != "" {
		sig.Strategy = strings.TrimSpace(v)
	}

	return sig
}

// parsePayload attempts JSON first, then falls back to key:value lines.
// Keys are lower-cased in both modes.
func parsePayload(raw []byte) map[string]string {
	fields := make(map[string]string)

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		for k, v := range doc {
			fields[strings.ToLower(k)] = stringify(v)
		}
		return fields
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return fields
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func pick(fields map[string]string, canonical string) (string, bool) {
	for _, alias := range fieldSynonyms[canonical] {
		if v, ok := fields[alias]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func pickFloat(fields map[string]string, canonical string) (float64, bool) {
	v, ok := pick(fields, canonical)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatSymbol canonicalizes a symbol to BASE_QUOTE form. Symbols already
// containing a separator are upper-cased; bare symbols are suffix-matched
// against the known quote currencies. Unknown symbols pass through upper-cased.
func FormatSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return DefaultSymbol
	}

	for _, sep := range []string{"_", "/", "-"} {
		if strings.Contains(s, sep) {
			return strings.ReplaceAll(s, sep, "_")
		}
	}

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "_" + quote
		}
	}
	return s
}
