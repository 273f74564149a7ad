package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// AppState is the durable application state document. Load normalizes
// missing or malformed fields to empty defaults; Save writes the whole
// document in one statement.
type AppState struct {
	Users      []json.RawMessage `json:"users"`
	Strategies []json.RawMessage `json:"strategies"`
	Webhook    *WebhookState     `json:"webhook"`
}

// WebhookState describes the registered inbound webhook.
type WebhookState struct {
	URL       string            `json:"url"`
	Secret    string            `json:"secret"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
	Routes    map[string]string `json:"routes"`
}

func emptyAppState() *AppState {
	return &AppState{
		Users:      []json.RawMessage{},
		Strategies: []json.RawMessage{},
		Webhook:    nil,
	}
}

// LoadAppState reads the state document, returning empty defaults when the
// row is absent or the stored JSON is malformed.
func (d *Database) LoadAppState(ctx context.Context) (*AppState, error) {
	var doc string
	err := d.DB.QueryRowContext(ctx, `SELECT doc FROM app_state WHERE id = 1`).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emptyAppState(), nil
		}
		return nil, fmt.Errorf("load app state: %w", err)
	}

	state := emptyAppState()
	if err := json.Unmarshal([]byte(doc), state); err != nil {
		return emptyAppState(), nil
	}
	if state.Users == nil {
		state.Users = []json.RawMessage{}
	}
	if state.Strategies == nil {
		state.Strategies = []json.RawMessage{}
	}
	return state, nil
}

// SaveAppState serializes and writes the full document atomically.
func (d *Database) SaveAppState(ctx context.Context, state *AppState) error {
	if state == nil {
		state = emptyAppState()
	}
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal app state: %w", err)
	}
	_, err = d.DB.ExecContext(ctx, `
		INSERT INTO app_state (id, doc, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
	`, string(doc))
	return err
}
