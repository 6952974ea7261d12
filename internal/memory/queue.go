// Package memory forwards accepted feedback, analysis outcomes and threshold
// changes to the persistence collaborator. It is a fire-and-forget sink: the
// engine never waits for persistence before answering callers.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairlens/fairlens-go/internal/datastore"
	"github.com/fairlens/fairlens-go/internal/logging"
	"github.com/fairlens/fairlens-go/internal/observability/metrics"
)

// Kind discriminates what an update carries.
type Kind string

const (
	KindFeedback  Kind = "feedback"
	KindAnalysis  Kind = "analysis"
	KindThreshold Kind = "threshold"
)

// Update is one queued persistence request.
type Update struct {
	Kind      Kind
	Feedback  *datastore.FeedbackRecord
	Analysis  *datastore.AnalysisRecord
	Threshold *datastore.ThresholdEvent
	Timestamp time.Time
}

// Stats contains runtime counters for monitoring.
type Stats struct {
	Enqueued  uint64
	Processed uint64
	Dropped   uint64
	Failed    uint64
}

// UpdateQueue is a bounded channel with a single consumer goroutine. Enqueue
// never blocks; when the queue is full the update is dropped and counted.
type UpdateQueue struct {
	updates chan Update
	store   datastore.Interface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	log     *slog.Logger
	metrics *metrics.EngineMetrics
}

// NewUpdateQueue creates and starts an update queue with the given capacity.
func NewUpdateQueue(size int, store datastore.Interface, m *metrics.EngineMetrics) *UpdateQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &UpdateQueue{
		updates: make(chan Update, size),
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
		log:     logging.ForService("memory"),
		metrics: m,
	}
	q.wg.Add(1)
	go q.consume()
	return q
}

// Enqueue offers an update to the queue. It returns false when the queue is
// full or already shut down; the caller does not retry.
func (q *UpdateQueue) Enqueue(u Update) bool {
	if q.closed.Load() {
		return false
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	select {
	case q.updates <- u:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.metrics.RecordQueueDrop()
		q.log.Warn("memory update dropped, queue full", "kind", string(u.Kind))
		return false
	}
}

// consume is the single consumer loop. Persistence failures are logged and
// the loop continues; only shutdown terminates it.
func (q *UpdateQueue) consume() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case u := <-q.updates:
					q.persist(u)
				default:
					return
				}
			}
		case u := <-q.updates:
			q.persist(u)
		}
	}
}

func (q *UpdateQueue) persist(u Update) {
	var err error
	switch u.Kind {
	case KindFeedback:
		err = q.store.SaveFeedback(u.Feedback)
	case KindAnalysis:
		err = q.store.SaveAnalysis(u.Analysis)
	case KindThreshold:
		err = q.store.SaveThresholdEvent(u.Threshold)
	default:
		q.log.Error("unknown memory update kind", "kind", string(u.Kind))
		return
	}
	if err != nil {
		q.failed.Add(1)
		q.log.Error("failed to persist memory update",
			"kind", string(u.Kind),
			"error", err,
		)
		return
	}
	q.processed.Add(1)
}

// Shutdown stops the consumer, draining queued updates, and waits up to
// timeout for it to exit.
func (q *UpdateQueue) Shutdown(timeout time.Duration) error {
	if q.closed.Swap(true) {
		return nil
	}
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// GetStats returns a snapshot of the queue counters.
func (q *UpdateQueue) GetStats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Dropped:   q.dropped.Load(),
		Failed:    q.failed.Load(),
	}
}
