package events

import "time"

// SignalEvent is the payload published for pipeline outcomes.
type SignalEvent struct {
	Topic     Event     `json:"topic"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Amount    float64   `json:"amount,omitempty"`
	Price     float64   `json:"price,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Strategy  string    `json:"strategy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemEvent is a lifecycle notice (startup, shutdown, alerts).
type SystemEvent struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"` // info, warn, error
	Timestamp time.Time `json:"timestamp"`
}
