// Package tracker turns batches of raw contacts into strokes.
//
// A Tracker owns the active strokes of one surface, keyed by the source's
// contact id. Like the strokes it holds, it is not safe for concurrent use:
// every entry point must be serialized by the caller.
package tracker

import (
	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/stroke"
)

// Stats counts what the last entry point call did.
type Stats struct {
	Confirmed int // confirmed samples appended
	Predicted int // predicted samples appended
	Purged    int // predicted samples discarded
	Resolved  int // updates applied to a pending sample
	Ignored   int // estimated updates with no pending sample
	Abandoned int // pending updates dropped when a contact id was reused
	Skipped   int // contacts with no effect
}

// Tracker maps contact ids to the strokes currently representing them.
// A finished stroke is always removed before its id can be reused.
type Tracker struct {
	active  map[string]*stroke.Stroke
	retired []*stroke.Stroke
	stats   Stats
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{active: make(map[string]*stroke.Stroke)}
}

// BeginContacts starts a stroke for every new contact and returns them.
//
// A contact whose stroke is still down is skipped. A contact whose stroke
// has ended but still awaits estimated updates retires that stroke first;
// retired strokes are collected by DrainRetired.
func (t *Tracker) BeginContacts(contacts []model.Contact, frame model.Frame) []*stroke.Stroke {
	t.stats = Stats{}
	created := make([]*stroke.Stroke, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if old, ok := t.active[c.ID]; ok {
			if old.ContactActive() {
				t.stats.Skipped++
				continue
			}
			t.stats.Abandoned += old.Abandon()
			delete(t.active, c.ID)
			t.retired = append(t.retired, old)
		}

		s := stroke.New()
		s.AddSample(&c.Sample, stroke.Confirmed, frame)
		t.stats.Confirmed++
		t.active[c.ID] = s
		created = append(created, s)
	}
	return created
}

// UpdateContacts applies a move, or with terminate set an end or cancel, to
// every known contact and returns the strokes it touched.
//
// A nil coalesced list falls back to the contact's own sample. Confirmed
// samples are applied before predicted ones, after the previous predicted
// tail is purged. Terminated strokes that are finished leave the tracker.
func (t *Tracker) UpdateContacts(contacts []model.Contact, coalesced, predicted model.Lookup, frame model.Frame, terminate bool) []*stroke.Stroke {
	t.stats = Stats{}
	touched := make([]*stroke.Stroke, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		s, ok := t.active[c.ID]
		if !ok {
			t.stats.Skipped++
			continue
		}

		t.stats.Purged += s.PurgePredicted()

		confirmed, ok := lookup(coalesced, c.ID)
		if !ok {
			confirmed = []model.RawSample{c.Sample}
		}
		before := s.Len()
		for j := range confirmed {
			s.AddSample(&confirmed[j], stroke.Confirmed, frame)
		}
		t.stats.Confirmed += s.Len() - before
		t.stats.Resolved += len(confirmed) - (s.Len() - before)

		speculative, _ := lookup(predicted, c.ID)
		for j := range speculative {
			s.AddSample(&speculative[j], stroke.Predicted, frame)
		}
		t.stats.Predicted += len(speculative)

		if terminate {
			s.MarkContactEnded(&c.Sample)
			if s.IsFinished() {
				delete(t.active, c.ID)
			}
		}
		touched = append(touched, s)
	}
	return touched
}

// PropertiesResolved applies estimated property updates and returns the
// strokes that own the updated contacts. A stroke whose contact already
// ended and has nothing left pending leaves the tracker.
func (t *Tracker) PropertiesResolved(contacts []model.Contact, frame model.Frame) []*stroke.Stroke {
	t.stats = Stats{}
	touched := make([]*stroke.Stroke, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		s, ok := t.active[c.ID]
		if !ok {
			t.stats.Skipped++
			continue
		}
		if s.ResolveUpdate(&c.Sample, frame) {
			t.stats.Resolved++
		} else {
			t.stats.Ignored++
		}
		if s.IsFinished() {
			delete(t.active, c.ID)
		}
		touched = append(touched, s)
	}
	return touched
}

func lookup(l model.Lookup, id string) ([]model.RawSample, bool) {
	if l == nil {
		return nil, false
	}
	return l(id)
}

// DrainRetired returns and forgets the strokes retired by BeginContacts
// since the last call.
func (t *Tracker) DrainRetired() []*stroke.Stroke {
	out := t.retired
	t.retired = nil
	return out
}

// Stats returns the counters of the last entry point call.
func (t *Tracker) Stats() Stats { return t.stats }

// Active returns the stroke currently tracked for a contact id.
func (t *Tracker) Active(contactID string) (*stroke.Stroke, bool) {
	s, ok := t.active[contactID]
	return s, ok
}

// ActiveCount returns the number of tracked strokes.
func (t *Tracker) ActiveCount() int { return len(t.active) }

// PendingCount returns the number of samples awaiting updates across all
// tracked strokes.
func (t *Tracker) PendingCount() int {
	n := 0
	for _, s := range t.active {
		n += s.PendingUpdates()
	}
	return n
}

// Partition splits touched strokes into those still updating, those that
// finished and those that finished after a cancellation.
func Partition(strokes []*stroke.Stroke) (updating, finished, cancelled []*stroke.Stroke) {
	for _, s := range strokes {
		switch {
		case !s.IsFinished():
			updating = append(updating, s)
		case s.Cancelled():
			cancelled = append(cancelled, s)
		default:
			finished = append(finished, s)
		}
	}
	return updating, finished, cancelled
}
