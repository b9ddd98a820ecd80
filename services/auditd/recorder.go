package auditd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"orbitalvault/core/events"
	"orbitalvault/core/types"
	"orbitalvault/services/auditd/storage"
)

const (
	recorderBacklog = 256
	recordTimeout   = 5 * time.Second
)

// Recorder subscribes to vault events and appends them to the audit trail.
// Writes run on a background worker so a slow disk never stalls the vault
// call that emitted the event; when the queue is full the event is dropped
// and the drop counted.
type Recorder struct {
	store *storage.Storage
	log   *slog.Logger

	queue chan *types.Event
	done  chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// NewRecorder starts a recorder persisting into store.
func NewRecorder(store *storage.Storage, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store: store,
		log:   logger,
		queue: make(chan *types.Event, recorderBacklog),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	var payload *types.Event
	if typed, ok := evt.(interface{ Event() *types.Event }); ok {
		payload = typed.Event()
	}
	if payload == nil {
		payload = &types.Event{Type: evt.EventType()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- payload:
	default:
		r.dropped++
		r.log.Warn("audit queue full, dropping event", "type", payload.Type, "dropped", r.dropped)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for evt := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.store.RecordEvent(ctx, evt, time.Now()); err != nil {
			r.log.Error("record audit event", "type", evt.Type, "err", err)
		}
		cancel()
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close drains queued events and stops the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.queue)
	<-r.done
}
