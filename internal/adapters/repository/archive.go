package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/inkflow/internal/domain/stroke"
	"github.com/okian/inkflow/internal/domain/tracker"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/metrics"
)

const (
	defaultMaxSize      = 10000
	defaultMaxListLimit = 1000
)

// record is one archived snapshot in the recency list.
type record struct {
	view       types.StrokeView
	prev, next *record
}

// ArchiveStore is a bounded in-memory Store. Snapshots are kept in a list
// ordered by last update. When full, the least recently updated terminal
// stroke is evicted; active strokes go only when nothing terminal is left.
//
// ArchiveStore also implements tracker.Dispatcher so it can be fed straight
// from a surface.
type ArchiveStore struct {
	mu           sync.RWMutex
	byID         map[string]*record
	head         *record // newest
	tail         *record // oldest
	maxSize      int
	maxListLimit int
}

var _ tracker.Dispatcher = (*ArchiveStore)(nil)

// NewArchiveStore constructs an archive with configuration options.
func NewArchiveStore(opts ...Option) *ArchiveStore {
	s := &ArchiveStore{
		byID:         make(map[string]*record),
		maxSize:      defaultMaxSize,
		maxListLimit: defaultMaxListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateArchiveSize(0)
	return s
}

// Upsert implements Store.Upsert.
func (s *ArchiveStore) Upsert(ctx context.Context, view types.StrokeView) error {
	if view.ID == "" {
		return ErrInvalidView
	}
	if view.UpdatedAt.IsZero() {
		view.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	if r, ok := s.byID[view.ID]; ok {
		r.view = view
		s.unlink(r)
		s.pushFront(r)
	} else {
		r := &record{view: view}
		s.byID[view.ID] = r
		s.pushFront(r)
		if len(s.byID) > s.maxSize {
			s.evict()
		}
	}
	size := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateArchiveSize(size)
	return nil
}

// Get implements Store.Get.
func (s *ArchiveStore) Get(ctx context.Context, id string) (types.StrokeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.StrokeView{}, ErrNotFound
	}
	return r.view, nil
}

// List implements Store.List. Limits above the configured maximum are capped.
func (s *ArchiveStore) List(ctx context.Context, q Query) ([]types.StrokeView, error) {
	if q.Limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	limit := min(q.Limit, s.maxListLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.StrokeView, 0, min(limit, len(s.byID)))
	for r := s.head; r != nil && len(out) < limit; r = r.next {
		if q.SurfaceID != "" && r.view.SurfaceID != q.SurfaceID {
			continue
		}
		if q.Status != "" && r.view.Status != q.Status {
			continue
		}
		out = append(out, r.view)
	}
	return out, nil
}

// Count implements Store.Count.
func (s *ArchiveStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// StrokesCreated implements tracker.Dispatcher.
func (s *ArchiveStore) StrokesCreated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	s.record(ctx, surfaceID, types.NotifyCreated, strokes)
}

// StrokesUpdated implements tracker.Dispatcher.
func (s *ArchiveStore) StrokesUpdated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	s.record(ctx, surfaceID, types.NotifyUpdated, strokes)
}

// StrokesFinished implements tracker.Dispatcher.
func (s *ArchiveStore) StrokesFinished(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	s.record(ctx, surfaceID, types.NotifyFinished, strokes)
}

// StrokesCancelled implements tracker.Dispatcher.
func (s *ArchiveStore) StrokesCancelled(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	s.record(ctx, surfaceID, types.NotifyCancelled, strokes)
}

func (s *ArchiveStore) record(ctx context.Context, surfaceID string, kind types.NotificationKind, strokes []*stroke.Stroke) {
	for _, v := range tracker.Views(surfaceID, kind, strokes) {
		_ = s.Upsert(ctx, v)
	}
}

// evict drops one record other than the newest, preferring the oldest
// terminal one. Caller holds mu.
func (s *ArchiveStore) evict() {
	victim := s.tail
	for r := s.tail; r != nil && r != s.head; r = r.prev {
		if r.view.Status.Terminal() {
			victim = r
			break
		}
	}
	if victim == nil || victim == s.head {
		return
	}
	s.unlink(victim)
	delete(s.byID, victim.view.ID)
	metrics.RecordArchiveEviction()
}

func (s *ArchiveStore) pushFront(r *record) {
	r.prev = nil
	r.next = s.head
	if s.head != nil {
		s.head.prev = r
	}
	s.head = r
	if s.tail == nil {
		s.tail = r
	}
}

func (s *ArchiveStore) unlink(r *record) {
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		s.head = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	} else {
		s.tail = r.prev
	}
	r.prev, r.next = nil, nil
}
