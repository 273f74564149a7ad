// Package notify fans pipeline events out to configured channels. Delivery
// is fire and forget: a slow or failing channel never blocks execution.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradehook/internal/events"
)

// Sink delivers one formatted message to a channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier subscribes to the event bus and pushes formatted messages to
// every sink concurrently.
type Notifier struct {
	bus   *events.Bus
	sinks []Sink
}

func New(bus *events.Bus, sinks ...Sink) *Notifier {
	return &Notifier{bus: bus, sinks: sinks}
}

// Run consumes events until the context is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	ch, unsub := n.bus.SubscribeAll(64)
	defer unsub()
	log.Printf("notify: running with %d sinks", len(n.sinks))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if text := format(msg); text != "" {
				n.broadcast(text)
			}
		}
	}
}

func (n *Notifier) broadcast(text string) {
	for _, sink := range n.sinks {
		go func(s Sink) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Send(ctx, text); err != nil {
				log.Printf("notify: %s delivery failed: %v", s.Name(), err)
			}
		}(sink)
	}
}

func format(msg any) string {
	switch ev := msg.(type) {
	case events.SignalEvent:
		switch ev.Topic {
		case events.EventSignalExecuted:
			return fmt.Sprintf("✅ Executed %s %s amount=%.8g price=%.8g order=%s",
				ev.Action, ev.Symbol, ev.Amount, ev.Price, ev.OrderID)
		case events.EventSignalRejected:
			return fmt.Sprintf("🚫 Rejected %s %s: %s", ev.Action, ev.Symbol, ev.Reason)
		case events.EventSignalFailed:
			return fmt.Sprintf("❌ Failed %s %s: %s", ev.Action, ev.Symbol, ev.Reason)
		case events.EventBracketArmed:
			return fmt.Sprintf("🎯 Bracket armed for %s amount=%.8g", ev.Symbol, ev.Amount)
		case events.EventBracketTriggered:
			return fmt.Sprintf("⚡ %s hit for %s at %.8g, position closed", ev.Action, ev.Symbol, ev.Price)
		}
	case events.SystemEvent:
		return fmt.Sprintf("ℹ️ %s", ev.Message)
	}
	return ""
}
