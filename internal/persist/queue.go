// Package persist serializes durable writes through a single ordered queue.
// Records are accepted in call order and written in that same order; when the
// store rejects a write the record falls back to a local JSON journal so
// nothing is lost.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradehook/pkg/db"
)

// Store is the slice of the database the queue writes through.
type Store interface {
	InsertTrade(ctx context.Context, t db.TradeRecord) error
	InsertSignal(ctx context.Context, s db.SignalRecord) error
	SaveSetting(ctx context.Context, key, value string) error
	SaveAppState(ctx context.Context, state *db.AppState) error
}

type job struct {
	kind   string // trade, signal, setting, state
	trade  db.TradeRecord
	signal db.SignalRecord
	key    string
	value  string
	state  *db.AppState
	queued time.Time
}

// Queue drains writes on a single goroutine, preserving submission order.
type Queue struct {
	store       Store
	fallbackDir string
	jobs        chan job

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewQueue builds a queue writing through store, journaling failed writes
// under fallbackDir.
func NewQueue(store Store, fallbackDir string, depth int) *Queue {
	if depth <= 0 {
		depth = 256
	}
	return &Queue{
		store:       store,
		fallbackDir: fallbackDir,
		jobs:        make(chan job, depth),
		done:        make(chan struct{}),
	}
}

// Start launches the drain loop.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.drain()
	})
}

// Stop closes the intake and blocks until every queued write has landed.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.jobs)
	})
	<-q.done
}

// EnqueueTrade submits a trade record. Returns false when the queue is full;
// the record is journaled locally instead of dropped.
func (q *Queue) EnqueueTrade(t db.TradeRecord) bool {
	return q.enqueue(job{kind: "trade", trade: t, queued: time.Now().UTC()})
}

// EnqueueSignal submits a signal record.
func (q *Queue) EnqueueSignal(s db.SignalRecord) bool {
	return q.enqueue(job{kind: "signal", signal: s, queued: time.Now().UTC()})
}

// EnqueueSetting submits a settings upsert.
func (q *Queue) EnqueueSetting(key, value string) bool {
	return q.enqueue(job{kind: "setting", key: key, value: value, queued: time.Now().UTC()})
}

// EnqueueAppState submits the full durable state document as one write.
func (q *Queue) EnqueueAppState(state *db.AppState) bool {
	return q.enqueue(job{kind: "state", state: state, queued: time.Now().UTC()})
}

func (q *Queue) enqueue(j job) bool {
	defer func() {
		// Enqueue after Stop would panic on the closed channel; treat it
		// like a full queue and journal the record.
		if recover() != nil {
			q.journal(j, fmt.Errorf("queue closed"))
		}
	}()
	select {
	case q.jobs <- j:
		return true
	default:
		log.Printf("persist: queue full, journaling %s record", j.kind)
		q.journal(j, fmt.Errorf("queue full"))
		return false
	}
}

func (q *Queue) drain() {
	defer close(q.done)
	for j := range q.jobs {
		q.write(j)
	}
}

func (q *Queue) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch j.kind {
	case "trade":
		err = q.store.InsertTrade(ctx, j.trade)
	case "signal":
		err = q.store.InsertSignal(ctx, j.signal)
	case "setting":
		err = q.store.SaveSetting(ctx, j.key, j.value)
	case "state":
		err = q.store.SaveAppState(ctx, j.state)
	default:
		err = fmt.Errorf("unknown record kind %q", j.kind)
	}
	if err != nil {
		log.Printf("persist: %s write failed, falling back to journal: %v", j.kind, err)
		q.journal(j, err)
	}
}

type journalEntry struct {
	Kind     string          `json:"kind"`
	QueuedAt time.Time       `json:"queuedAt"`
	Error    string          `json:"error"`
	Record   json.RawMessage `json:"record"`
}

// journal appends the record as one JSON line under the fallback directory,
// one file per day.
func (q *Queue) journal(j job, cause error) {
	var record any
	switch j.kind {
	case "trade":
		record = j.trade
	case "signal":
		record = j.signal
	case "setting":
		record = map[string]string{"key": j.key, "value": j.value}
	case "state":
		record = j.state
	}
	raw, err := json.Marshal(record)
	if err != nil {
		log.Printf("persist: journal marshal: %v", err)
		return
	}
	line, err := json.Marshal(journalEntry{
		Kind:     j.kind,
		QueuedAt: j.queued,
		Error:    cause.Error(),
		Record:   raw,
	})
	if err != nil {
		log.Printf("persist: journal marshal: %v", err)
		return
	}

	if err := os.MkdirAll(q.fallbackDir, 0o755); err != nil {
		log.Printf("persist: journal dir: %v", err)
		return
	}
	name := filepath.Join(q.fallbackDir, "journal-"+time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("persist: journal open: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("persist: journal write: %v", err)
	}
}
