// Package worker applies queued batches one at a time.
//
// A single worker is the only goroutine that touches stroke state, which is
// what makes the tracker's single-writer contract hold.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inkflow/internal/adapters/mq/queue"
	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/pkg/logger"
	"github.com/okian/inkflow/pkg/metrics"
)

// Source is where the worker reads batches from.
type Source interface {
	Next(ctx context.Context) (*model.Batch, error)
}

// Applier applies one batch to stroke state.
type Applier interface {
	Apply(ctx context.Context, b *model.Batch) error
}

// Worker processes batches until its source stops.
type Worker interface {
	// Run blocks until the source is drained and stopped, ctx is done or
	// Shutdown gives up waiting.
	Run(ctx context.Context)

	// Shutdown waits for Run to return. Close the source first so the
	// remaining batches drain; if ctx expires the loop is abandoned.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	source  Source
	applier Applier
	name    string

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source Source, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:  source,
		applier: applier,
		name:    "worker",
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	for {
		b, err := w.source.Next(runCtx)
		switch {
		case errors.Is(err, queue.ErrStopped):
			w.logger.Debug(ctx, "source drained")
			return
		case err != nil:
			return
		}
		// Next may pick a buffered batch after Shutdown gave up.
		if runCtx.Err() != nil {
			return
		}

		if err := w.process(runCtx, b); err != nil {
			w.logger.Error(ctx, "error applying batch", logger.Error(err))
		}
	}
}

// Shutdown waits for the loop to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.stopOnce.Do(func() { close(w.stop) })
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns the number of batches applied without error.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of batches whose apply returned an error.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, b *model.Batch) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.applier.Apply(ctx, b); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply batch %s: %w", b.BatchID, err)
	}
	w.processed.Add(1)
	return nil
}
