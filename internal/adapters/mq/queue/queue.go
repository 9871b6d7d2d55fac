// Package queue buffers accepted batches between the HTTP handlers and the
// single worker that applies them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue provides non-blocking enqueue and blocking, ordered dequeue.
type Queue interface {
	// Enqueue adds a batch. It fails with ErrFull when at capacity and
	// ErrStopped after Close.
	Enqueue(ctx context.Context, b *model.Batch) error

	// Next blocks until a batch is available. After Close it keeps
	// returning queued batches, then ErrStopped.
	Next(ctx context.Context) (*model.Batch, error)

	Len(ctx context.Context) int
	Capacity() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches  chan *model.Batch
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan *model.Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()

	return q
}

// Enqueue adds a batch to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b *model.Batch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.batches <- b:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Next returns the oldest queued batch.
func (q *InMemoryQueue) Next(ctx context.Context) (*model.Batch, error) {
	select {
	case b, ok := <-q.batches:
		if !ok {
			return nil, ErrStopped
		}
		metrics.RecordQueueDequeue()
		q.observe()
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.observe()
}

// Capacity returns the maximum number of queued batches.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) observe() int {
	size := len(q.batches)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops accepting batches. Queued batches can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
