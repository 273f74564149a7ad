package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TradeRecord is a durable record of an executed order.
type TradeRecord struct {
	ID        string
	OrderID   string
	Symbol    string
	Action    string
	Amount    float64
	Price     float64
	Status    string
	Strategy  string
	CreatedAt time.Time
}

// SignalRecord logs every signal that passed through the pipeline with its
// outcome (executed, rejected, failed).
type SignalRecord struct {
	ID        string
	Symbol    string
	Action    string
	Outcome   string
	Reason    string
	Raw       string
	CreatedAt time.Time
}

// InsertTrade stores a trade record.
func (d *Database) InsertTrade(ctx context.Context, t TradeRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (id, order_id, symbol, action, amount, price, status, strategy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OrderID, t.Symbol, t.Action, t.Amount, t.Price, t.Status, t.Strategy, t.CreatedAt)
	return err
}

// ListTrades returns the most recent trades, newest first.
func (d *Database) ListTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, symbol, action, amount, price, status, strategy, created_at
		FROM trades ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Action, &t.Amount, &t.Price, &t.Status, &t.Strategy, &t.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertSignal stores a signal log entry.
func (d *Database) InsertSignal(ctx context.Context, s SignalRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO signals (id, symbol, action, outcome, reason, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Symbol, s.Action, s.Outcome, s.Reason, s.Raw, s.CreatedAt)
	return err
}

// ListSignals returns the most recent signal log entries, newest first.
func (d *Database) ListSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, action, outcome, reason, raw, created_at
		FROM signals ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []SignalRecord
	for rows.Next() {
		var s SignalRecord
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Action, &s.Outcome, &s.Reason, &s.Raw, &s.CreatedAt); err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// SaveSetting upserts a settings blob under a key.
func (d *Database) SaveSetting(ctx context.Context, key, value string) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// LoadSetting returns the value for a key, empty string when absent.
func (d *Database) LoadSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}
