package events

import (
	"sync"
)

// Event identifies a pipeline event topic.
type Event string

const (
	EventSignalReceived   Event = "signal.received"
	EventSignalRejected   Event = "signal.rejected"
	EventSignalExecuted   Event = "signal.executed"
	EventSignalFailed     Event = "signal.failed"
	EventBracketArmed     Event = "bracket.armed"
	EventBracketTriggered Event = "bracket.triggered"
	EventSystem           Event = "system"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan any
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener for an event and returns the channel and an
// unsubscribe function.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// SubscribeAll registers a listener for every pipeline event topic.
func (b *Bus) SubscribeAll(buffer int) (<-chan any, func()) {
	topics := []Event{
		EventSignalReceived, EventSignalRejected, EventSignalExecuted,
		EventSignalFailed, EventBracketArmed, EventBracketTriggered, EventSystem,
	}
	out := make(chan any, buffer)
	var unsubs []func()
	var wg sync.WaitGroup
	for _, topic := range topics {
		ch, unsub := b.Subscribe(topic, buffer)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(ch <-chan any) {
			defer wg.Done()
			for msg := range ch {
				select {
				case out <- msg:
				default:
				}
			}
		}(ch)
	}
	cancel := func() {
		for _, u := range unsubs {
			u()
		}
		go func() {
			wg.Wait()
			close(out)
		}()
	}
	return out, cancel
}

// Publish fans out the payload to subscribers asynchronously to avoid
// blocking the pipeline.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
