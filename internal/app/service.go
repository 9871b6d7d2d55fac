// Package service wires the stroke engine to its queue, worker and
// consumers, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inkflow/internal/adapters/mq/queue"
	"github.com/okian/inkflow/internal/adapters/mq/worker"
	"github.com/okian/inkflow/internal/adapters/render"
	"github.com/okian/inkflow/internal/adapters/repository"
	"github.com/okian/inkflow/internal/adapters/stream"
	"github.com/okian/inkflow/internal/domain/dedupe"
	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/tracker"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/logger"
	"github.com/okian/inkflow/pkg/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// Service owns every surface. Batches reach surfaces only through the
// worker, so stroke state has a single writer.
type Service struct {
	mu sync.RWMutex

	// Core components
	archive  *repository.ArchiveStore
	hub      *stream.Hub
	renderer *render.Renderer
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	worker   *worker.InMemoryWorker

	// Surfaces are created on first use by the worker.
	surfacesMu sync.RWMutex
	surfaces   map[string]*tracker.Surface
	dispatcher tracker.Dispatcher

	// Gauges published after every applied batch.
	activeStrokes  atomic.Int64
	pendingUpdates atomic.Int64
	applied        atomic.Int64

	// Configuration
	queueSize          int
	dedupeSize         int
	archiveSize        int
	maxListLimit       int
	previewWidth       int
	previewHeight      int
	previewPadding     float64
	streamBuffer       int
	streamWriteTimeout time.Duration
	streamPing         time.Duration
	shutdownTimeout    time.Duration

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the maximum number of batches waiting for the worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the batch id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithArchiveSize sets how many stroke snapshots are retained.
func WithArchiveSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.archiveSize = size
		}
	}
}

// WithMaxListLimit caps the number of strokes one listing may return.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithPreviewSize sets the preview image dimensions.
func WithPreviewSize(width, height int) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.previewWidth = width
			s.previewHeight = height
		}
	}
}

// WithPreviewPadding sets the margin kept around a previewed stroke.
func WithPreviewPadding(p float64) Option {
	return func(s *Service) {
		if p >= 0 {
			s.previewPadding = p
		}
	}
}

// WithStreamPingInterval sets how often idle subscribers are pinged.
func WithStreamPingInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.streamPing = d
		}
	}
}

// WithStream configures the per-subscriber buffer and write timeout.
func WithStream(buffer int, writeTimeout time.Duration) Option {
	return func(s *Service) {
		if buffer > 0 {
			s.streamBuffer = buffer
		}
		if writeTimeout > 0 {
			s.streamWriteTimeout = writeTimeout
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued batches.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Consumers exist immediately so routes can be
// registered before Start.
func New(opts ...Option) *Service {
	s := &Service{
		surfaces:           make(map[string]*tracker.Surface),
		queueSize:          10000,
		dedupeSize:         50000,
		archiveSize:        10000,
		maxListLimit:       1000,
		previewWidth:       512,
		previewHeight:      512,
		previewPadding:     16,
		streamBuffer:       64,
		streamWriteTimeout: 5 * time.Second,
		streamPing:         30 * time.Second,
		shutdownTimeout:    defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.archive = repository.NewArchiveStore(
		repository.WithMaxSize(s.archiveSize),
		repository.WithMaxListLimit(s.maxListLimit),
	)
	s.hub = stream.NewHub(
		stream.WithBuffer(s.streamBuffer),
		stream.WithWriteTimeout(s.streamWriteTimeout),
		stream.WithPingInterval(s.streamPing),
		stream.WithLogger(s.logger.Named("stream")),
	)
	s.renderer = render.New(
		render.WithSize(s.previewWidth, s.previewHeight),
		render.WithPadding(s.previewPadding),
	)
	s.dispatcher = tracker.Multi{s.archive, s.hub}
	return s
}

// Start creates the queue, launches the worker and reopens the stream. It
// returns ErrDraining while a worker abandoned by Stop is still applying a
// batch, so two workers never touch stroke state at once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.worker != nil {
		select {
		case <-s.worker.Done():
		default:
			return ErrDraining
		}
	}

	s.logger.Info(ctx, "starting inkflow service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s,
		worker.WithName("apply"),
		worker.WithLogger(s.logger.Named("worker")),
	)

	// The worker outlives the request that started the service.
	runCtx := context.WithoutCancel(ctx)
	go s.worker.Run(runCtx)
	s.hub.Open()

	s.started = true
	s.logger.Info(ctx, "inkflow service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("archiveSize", s.archiveSize),
	)
	return nil
}

// Stop drains the queue, waits for the worker and disconnects subscribers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping inkflow service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker did not drain in time", logger.Error(err))
	}
	_ = s.hub.Close()

	s.started = false
	s.logger.Info(ctx, "inkflow service stopped",
		logger.Int64("processed", s.worker.Processed()),
		logger.Int64("failed", s.worker.Failed()),
	)
}

// SeenAndRecord reports whether a batch id was already accepted, recording
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordBatch(metrics.BatchDuplicate)
	}
	return seen
}

// Unrecord forgets a batch id so a rejected batch can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered batch ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue hands a validated batch to the worker. It returns queue.ErrFull
// on backpressure and queue.ErrStopped when the service is not running.
func (s *Service) Enqueue(ctx context.Context, b *model.Batch) error {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		metrics.RecordBatch(metrics.BatchRejected)
		return queue.ErrStopped
	}

	if err := q.Enqueue(ctx, b); err != nil {
		metrics.RecordBatch(metrics.BatchRejected)
		s.logger.Warn(ctx, "batch rejected",
			logger.String("batchID", b.BatchID),
			logger.String("surfaceID", b.SurfaceID),
			logger.Error(err),
		)
		return err
	}
	metrics.RecordBatch(metrics.BatchReceived)
	s.logger.Debug(ctx, "batch enqueued",
		logger.String("batchID", b.BatchID),
		logger.String("surfaceID", b.SurfaceID),
		logger.String("kind", string(b.Kind)),
		logger.Int("contacts", len(b.Contacts)),
	)
	return nil
}

// Apply routes a batch to its surface. Only the worker calls it.
func (s *Service) Apply(ctx context.Context, b *model.Batch) error {
	start := time.Now()
	surface := s.surface(b.SurfaceID)
	if err := surface.Handle(ctx, b); err != nil {
		return fmt.Errorf("apply batch %s: %w", b.BatchID, err)
	}
	metrics.RecordBatch(metrics.BatchApplied)
	metrics.RecordBatchLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	s.publishGauges()
	s.applied.Add(1)
	return nil
}

func (s *Service) surface(id string) *tracker.Surface {
	s.surfacesMu.RLock()
	sf, ok := s.surfaces[id]
	s.surfacesMu.RUnlock()
	if ok {
		return sf
	}

	s.surfacesMu.Lock()
	defer s.surfacesMu.Unlock()
	if sf, ok = s.surfaces[id]; ok {
		return sf
	}
	sf = tracker.NewSurface(id, s.dispatcher, tracker.WithLogger(s.logger.Named("surface")))
	s.surfaces[id] = sf
	metrics.UpdateSurfaces(len(s.surfaces))
	return sf
}

// publishGauges runs on the worker, the only goroutine allowed to read
// tracker state.
func (s *Service) publishGauges() {
	s.surfacesMu.RLock()
	defer s.surfacesMu.RUnlock()
	var active, pending int
	for _, sf := range s.surfaces {
		active += sf.Tracker().ActiveCount()
		pending += sf.Tracker().PendingCount()
	}
	s.activeStrokes.Store(int64(active))
	s.pendingUpdates.Store(int64(pending))
	metrics.UpdateActiveStrokes(active)
	metrics.UpdatePendingUpdates(pending)
}

// Stroke returns the archived snapshot of one stroke.
func (s *Service) Stroke(ctx context.Context, id string) (types.StrokeView, error) {
	return s.archive.Get(ctx, id)
}

// Strokes lists archived snapshots, newest first.
func (s *Service) Strokes(ctx context.Context, q repository.Query) ([]types.StrokeView, error) {
	return s.archive.List(ctx, q)
}

// Preview renders the archived snapshot of a stroke as PNG.
func (s *Service) Preview(ctx context.Context, id string) ([]byte, error) {
	view, err := s.archive.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(view)
	if err != nil {
		return nil, fmt.Errorf("render stroke %s: %w", id, err)
	}
	return img, nil
}

// Stream returns the WebSocket handler for live notifications.
func (s *Service) Stream() http.Handler {
	return s.hub
}

// GetStats returns a snapshot of the engine for GET /stats. Reading it
// also refreshes the queue gauges.
func (s *Service) GetStats() types.EngineStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	s.surfacesMu.RLock()
	surfaces := len(s.surfaces)
	s.surfacesMu.RUnlock()

	stats := types.EngineStats{
		Started:         s.started,
		QueueSize:       s.queueSize,
		DedupeSize:      s.dedupeSize,
		SeenBatches:     s.deduper.Size(),
		Surfaces:        surfaces,
		ActiveStrokes:   s.activeStrokes.Load(),
		PendingUpdates:  s.pendingUpdates.Load(),
		AppliedBatches:  s.applied.Load(),
		ArchivedStrokes: s.archive.Count(ctx),
		StreamClients:   s.hub.Clients(),
	}
	if s.worker != nil {
		stats.FailedBatches = s.worker.Failed()
	}
	if s.started {
		stats.QueueLength = s.queue.Len(ctx)
	}
	return stats
}
