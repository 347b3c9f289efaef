// Package jobs runs document processing jobs on a fixed pool of in-process workers.
package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/folio/internal/models"
)

// ErrClosed is returned by Enqueue after the queue has stopped running.
var ErrClosed = errors.New("job queue closed")

// Handler processes one document id and reports its terminal status.
type Handler func(ctx context.Context, id string) models.JobStatus

// Stats is a snapshot of queue activity since start.
type Stats struct {
	Waiting   int   `json:"waiting"`
	Running   int64 `json:"running"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
}

// Queue is an unbounded FIFO of document ids. Enqueue never blocks, and an id already
// waiting is not added twice.
type Queue struct {
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	items   []string
	waiting map[string]struct{}
	closed  bool
	notify  chan struct{}

	running   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewQueue returns a queue that Run drains with the given number of workers (at least one).
func NewQueue(workers int, opts ...QueueOption) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{
		workers: workers,
		logger:  zap.NewNop(),
		waiting: make(map[string]struct{}),
		notify:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends id to the queue unless it is already waiting.
func (q *Queue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if _, ok := q.waiting[id]; ok {
		q.mu.Unlock()
		q.logger.Debug("job already waiting", zap.String("id", id))
		return nil
	}
	q.waiting[id] = struct{}{}
	q.items = append(q.items, id)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// next blocks until an id is available or ctx is done.
func (q *Queue) next(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			delete(q.waiting, id)
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return id, true
		}
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", false
		case <-q.notify:
		}
	}
}

// Run processes jobs until ctx is cancelled, then waits for in-flight jobs to return.
// Jobs still waiting are dropped; their documents stay pending and are picked up again by
// the next process start.
func (q *Queue) Run(ctx context.Context, handle Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				id, ok := q.next(gctx)
				if !ok {
					return nil
				}
				q.running.Add(1)
				status := handle(gctx, id)
				q.running.Add(-1)
				q.record(status)
				q.logger.Debug("job finished", zap.Int("worker", worker), zap.String("id", id), zap.String("status", string(status)))
			}
		})
	}
	err := g.Wait()
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return err
}

func (q *Queue) record(status models.JobStatus) {
	switch status {
	case models.JobSuccess:
		q.succeeded.Add(1)
	case models.JobFailed:
		q.failed.Add(1)
	default:
		q.skipped.Add(1)
	}
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	waiting := len(q.items)
	q.mu.Unlock()
	return Stats{
		Waiting:   waiting,
		Running:   q.running.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Skipped:   q.skipped.Load(),
	}
}
