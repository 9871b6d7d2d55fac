package tracker

import (
	"context"
	"fmt"

	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/stroke"
	"github.com/okian/inkflow/pkg/logger"
	"github.com/okian/inkflow/pkg/metrics"
)

// Surface receives the contact callbacks of one input surface, drives its
// Tracker and reports the resulting stroke sets to a Dispatcher.
//
// Calls must be serialized.
type Surface struct {
	id         string
	tracker    *Tracker
	dispatcher Dispatcher
	logger     logger.Logger
}

// NewSurface creates a surface reporting to d.
func NewSurface(id string, d Dispatcher, opts ...Option) *Surface {
	s := &Surface{
		id:         id,
		tracker:    New(),
		dispatcher: d,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("surface")
	}
	return s
}

// ID returns the surface id.
func (s *Surface) ID() string { return s.id }

// Tracker exposes the surface's tracker for inspection.
func (s *Surface) Tracker() *Tracker { return s.tracker }

// Handle routes a batch to the callback matching its kind.
func (s *Surface) Handle(ctx context.Context, b *model.Batch) error {
	switch b.Kind {
	case model.KindBegan:
		s.OnContactsBegan(ctx, b.Contacts, b.Frame)
	case model.KindMoved:
		coalesced, predicted := b.Lookups()
		s.OnContactsMoved(ctx, b.Contacts, coalesced, predicted, b.Frame)
	case model.KindEnded:
		coalesced, predicted := b.Lookups()
		s.OnContactsEnded(ctx, b.Contacts, coalesced, predicted, b.Frame)
	case model.KindCancelled:
		coalesced, predicted := b.Lookups()
		s.OnContactsCancelled(ctx, b.Contacts, coalesced, predicted, b.Frame)
	case model.KindEstimated:
		s.OnEstimatedPropertiesUpdated(ctx, b.Contacts, b.Frame)
	default:
		return fmt.Errorf("%w: unknown kind %q", model.ErrInvalidBatch, b.Kind)
	}
	return nil
}

// OnContactsBegan starts strokes for new contacts.
func (s *Surface) OnContactsBegan(ctx context.Context, contacts []model.Contact, frame model.Frame) {
	created := s.tracker.BeginContacts(contacts, frame)
	s.record(ctx, model.KindBegan)

	if retired := s.tracker.DrainRetired(); len(retired) > 0 {
		s.logger.Debug(ctx, "retired strokes for reused contact ids", logger.Int("count", len(retired)))
		_, finished, cancelled := Partition(retired)
		s.finished(ctx, finished)
		s.cancelled(ctx, cancelled)
	}
	s.created(ctx, created)
}

// OnContactsMoved extends the strokes of moving contacts.
func (s *Surface) OnContactsMoved(ctx context.Context, contacts []model.Contact, coalesced, predicted model.Lookup, frame model.Frame) {
	touched := s.tracker.UpdateContacts(contacts, coalesced, predicted, frame, false)
	s.record(ctx, model.KindMoved)
	s.updated(ctx, touched)
}

// OnContactsEnded extends and ends the strokes of lifted contacts.
func (s *Surface) OnContactsEnded(ctx context.Context, contacts []model.Contact, coalesced, predicted model.Lookup, frame model.Frame) {
	touched := s.tracker.UpdateContacts(contacts, coalesced, predicted, frame, true)
	s.record(ctx, model.KindEnded)
	updating, finished, cancelled := Partition(touched)
	s.updated(ctx, updating)
	s.finished(ctx, finished)
	s.cancelled(ctx, cancelled)
}

// OnContactsCancelled ends the strokes of cancelled contacts. The whole
// touched set is reported as cancelled, including strokes still awaiting
// estimated updates.
func (s *Surface) OnContactsCancelled(ctx context.Context, contacts []model.Contact, coalesced, predicted model.Lookup, frame model.Frame) {
	touched := s.tracker.UpdateContacts(contacts, coalesced, predicted, frame, true)
	for _, st := range touched {
		st.MarkCancelled()
	}
	s.record(ctx, model.KindCancelled)
	s.cancelled(ctx, touched)
}

// OnEstimatedPropertiesUpdated applies late property estimates.
func (s *Surface) OnEstimatedPropertiesUpdated(ctx context.Context, contacts []model.Contact, frame model.Frame) {
	touched := s.tracker.PropertiesResolved(contacts, frame)
	s.record(ctx, model.KindEstimated)
	updating, finished, cancelled := Partition(touched)
	s.updated(ctx, updating)
	s.finished(ctx, finished)
	s.cancelled(ctx, cancelled)
}

func (s *Surface) record(ctx context.Context, kind model.EventKind) {
	st := s.tracker.Stats()
	metrics.RecordSamples(stroke.Confirmed.String(), st.Confirmed)
	metrics.RecordSamples(stroke.Predicted.String(), st.Predicted)
	metrics.RecordPredictedPurged(st.Purged)
	metrics.RecordEstimatedUpdates(metrics.UpdateResolved, st.Resolved)
	metrics.RecordEstimatedUpdates(metrics.UpdateIgnored, st.Ignored)
	metrics.RecordEstimatedUpdates(metrics.UpdateAbandoned, st.Abandoned)
	metrics.RecordContactsSkipped(st.Skipped)

	if st.Abandoned > 0 {
		s.logger.Warn(ctx, "pending updates abandoned on contact reuse",
			logger.String("surface", s.id),
			logger.Int("abandoned", st.Abandoned))
	}
	if st.Skipped > 0 {
		s.logger.Debug(ctx, "contacts skipped",
			logger.String("surface", s.id),
			logger.String("kind", string(kind)),
			logger.Int("skipped", st.Skipped))
	}
	s.logger.Debug(ctx, "batch applied",
		logger.String("surface", s.id),
		logger.String("kind", string(kind)),
		logger.Int("confirmed", st.Confirmed),
		logger.Int("predicted", st.Predicted),
		logger.Int("purged", st.Purged),
		logger.Int("active", s.tracker.ActiveCount()))
}

func (s *Surface) created(ctx context.Context, strokes []*stroke.Stroke) {
	if len(strokes) == 0 || s.dispatcher == nil {
		return
	}
	metrics.RecordStrokes(metrics.StrokeCreated, len(strokes))
	s.dispatcher.StrokesCreated(ctx, s.id, strokes)
}

func (s *Surface) updated(ctx context.Context, strokes []*stroke.Stroke) {
	if len(strokes) == 0 || s.dispatcher == nil {
		return
	}
	metrics.RecordStrokes(metrics.StrokeUpdated, len(strokes))
	s.dispatcher.StrokesUpdated(ctx, s.id, strokes)
}

func (s *Surface) finished(ctx context.Context, strokes []*stroke.Stroke) {
	if len(strokes) == 0 || s.dispatcher == nil {
		return
	}
	metrics.RecordStrokes(metrics.StrokeFinished, len(strokes))
	s.dispatcher.StrokesFinished(ctx, s.id, strokes)
}

func (s *Surface) cancelled(ctx context.Context, strokes []*stroke.Stroke) {
	if len(strokes) == 0 || s.dispatcher == nil {
		return
	}
	metrics.RecordStrokes(metrics.StrokeCancelled, len(strokes))
	s.dispatcher.StrokesCancelled(ctx, s.id, strokes)
}
