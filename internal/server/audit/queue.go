package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueFull   = errors.New("audit queue is full")
	ErrQueueClosed = errors.New("audit queue is closed")
)

const (
	defaultQueueSize = 1024
	// pruneEvery is how many writes pass between two retention runs.
	pruneEvery = 256
)

// Queue takes denials off the request path. Record never blocks: when the
// writer falls behind, new entries are dropped and counted.
type Queue struct {
	store *Store
	keep  int
	log   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	entries chan Entry
	done    chan struct{}

	dropped atomic.Uint64
}

// NewQueue buffers up to size entries for store. keep > 0 bounds the table
// to the newest keep rows.
func NewQueue(store *Store, size, keep int, log *slog.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		store:   store,
		keep:    keep,
		log:     log,
		entries: make(chan Entry, size),
		done:    make(chan struct{}),
	}
}

func (q *Queue) Record(_ context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.entries <- e:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run writes queued entries until Close. It is meant to run in its own goroutine.
func (q *Queue) Run() {
	defer close(q.done)
	ctx := context.Background()

	q.prune(ctx)
	written := 0
	for e := range q.entries {
		if err := q.store.Record(ctx, e); err != nil {
			q.log.Warn("failed to record denial", slog.String("err", err.Error()))
			continue
		}
		written++
		if written%pruneEvery == 0 {
			q.prune(ctx)
		}
	}
	q.prune(ctx)
}

func (q *Queue) prune(ctx context.Context) {
	if q.keep <= 0 {
		return
	}
	n, err := q.store.Prune(ctx, q.keep)
	if err != nil {
		q.log.Warn("failed to prune denials", slog.String("err", err.Error()))
		return
	}
	if n > 0 {
		q.log.Debug("pruned denials", slog.Int64("rows", n))
	}
}

// Close stops accepting entries and waits until Run has written the rest.
// Run must have been started.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.entries)
	}
	q.mu.Unlock()
	<-q.done
}

// Dropped is the number of entries refused because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
