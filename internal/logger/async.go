package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler hands records to a pool of workers over a buffered channel so
// request goroutines never block on stdout. Records are dropped, and
// counted, when the buffer is full.
type AsyncHandler struct {
	next    slog.Handler
	queue   chan slog.Record
	workers *sync.WaitGroup
	dropped *atomic.Int64
	state   *closeState
}

type closeState struct {
	mu     sync.RWMutex
	closed bool
}

// NewAsyncHandler starts workers goroutines draining a buffer of size records.
func NewAsyncHandler(next slog.Handler, size, workers int) *AsyncHandler {
	h := &AsyncHandler{
		next:    next,
		queue:   make(chan slog.Record, size),
		workers: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
		state:   &closeState{},
	}
	for range workers {
		h.workers.Add(1)
		go h.run()
	}
	return h
}

func (h *AsyncHandler) run() {
	defer h.workers.Done()
	for rec := range h.queue {
		_ = h.next.Handle(context.Background(), rec)
	}
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle enqueues a clone of rec, or drops it if the buffer is full or the
// handler is closed.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	if h.state.closed {
		h.dropped.Add(1)
		return nil
	}
	select {
	case h.queue <- rec.Clone():
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs shares the buffer and workers with h.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	return &c
}

// WithGroup shares the buffer and workers with h.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	return &c
}

// Dropped returns the number of records discarded so far.
func (h *AsyncHandler) Dropped() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and waits until the buffer is drained.
func (h *AsyncHandler) Close() {
	h.state.mu.Lock()
	if h.state.closed {
		h.state.mu.Unlock()
		return
	}
	h.state.closed = true
	close(h.queue)
	h.state.mu.Unlock()
	h.workers.Wait()
}
