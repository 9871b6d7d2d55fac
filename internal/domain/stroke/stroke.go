package stroke

import (
	"github.com/google/uuid"
	"github.com/okian/inkflow/internal/domain/model"
)

// Stroke is the ordered sample sequence of one physical contact.
//
// Samples keep arrival order. Predicted samples only ever form the tail:
// every batch purges them before appending new samples.
type Stroke struct {
	id      uuid.UUID
	samples []*SamplePoint

	// pending maps an in-flight update key to the sample awaiting it.
	pending map[model.UpdateKey]*SamplePoint

	contactActive bool
	cancelled     bool
}

// New returns an empty stroke for a contact that has just begun.
func New() *Stroke {
	return &Stroke{
		id:            uuid.New(),
		pending:       make(map[model.UpdateKey]*SamplePoint),
		contactActive: true,
	}
}

// ID returns the stroke id.
func (s *Stroke) ID() uuid.UUID { return s.id }

// Len returns the number of samples.
func (s *Stroke) Len() int { return len(s.samples) }

// Samples returns the samples in arrival order. The slice is a copy; the
// points are shared and must not be retained past the current cycle if the
// caller needs a stable view (use View for that).
func (s *Stroke) Samples() []*SamplePoint {
	out := make([]*SamplePoint, len(s.samples))
	copy(out, s.samples)
	return out
}

// At returns the i-th sample.
func (s *Stroke) At(i int) *SamplePoint { return s.samples[i] }

// Device is the device of the first sample, or Finger when empty.
func (s *Stroke) Device() Device {
	if len(s.samples) == 0 {
		return Finger
	}
	return s.samples[0].device
}

// ContactActive reports whether the physical contact is still down.
func (s *Stroke) ContactActive() bool { return s.contactActive }

// PendingUpdates returns the number of samples awaiting estimated updates.
func (s *Stroke) PendingUpdates() int { return len(s.pending) }

// IsFinished reports whether the contact has ended and nothing is pending.
func (s *Stroke) IsFinished() bool {
	return len(s.pending) == 0 && !s.contactActive
}

// Cancelled reports whether the contact was cancelled rather than ended.
func (s *Stroke) Cancelled() bool { return s.cancelled }

// MarkCancelled records that the contact ended by cancellation.
func (s *Stroke) MarkCancelled() { s.cancelled = true }

// AddSample records a raw sample. A confirmed sample carrying the key of a
// pending update corrects that sample instead of appending a new one.
func (s *Stroke) AddSample(raw *model.RawSample, provenance Provenance, frame model.Frame) {
	key, hasKey := raw.Key()
	if hasKey {
		if _, ok := s.pending[key]; ok {
			s.ResolveUpdate(raw, frame)
			return
		}
	}

	p := NewSamplePoint(provenance, raw, frame)
	s.samples = append(s.samples, p)

	if hasKey && provenance == Confirmed && raw.ExpectsUpdates() {
		s.pending[key] = p
		return
	}
	p.finalized = true
}

// ResolveUpdate applies an estimated property update. Unknown keys are
// ignored. It reports whether a pending sample was updated.
func (s *Stroke) ResolveUpdate(raw *model.RawSample, frame model.Frame) bool {
	key, ok := raw.Key()
	if !ok {
		return false
	}
	p, ok := s.pending[key]
	if !ok {
		return false
	}
	p.update(raw, frame)
	if !raw.ExpectsUpdates() {
		delete(s.pending, key)
		p.finalized = true
	}
	return true
}

// MarkContactEnded records the end of the physical contact. The end event
// carries no new geometry, so a pending sample it settles is finalized
// as-is.
func (s *Stroke) MarkContactEnded(raw *model.RawSample) {
	s.contactActive = false
	key, ok := raw.Key()
	if !ok || raw.ExpectsUpdates() {
		return
	}
	if p, ok := s.pending[key]; ok {
		delete(s.pending, key)
		p.finalized = true
	}
}

// Abandon ends the contact and finalizes every pending sample without
// waiting for its update. Used when the contact id is reused before the
// old stroke settled.
func (s *Stroke) Abandon() int {
	s.contactActive = false
	n := len(s.pending)
	for key, p := range s.pending {
		p.finalized = true
		delete(s.pending, key)
	}
	return n
}

// PurgePredicted drops every predicted sample and returns how many went.
func (s *Stroke) PurgePredicted() int {
	kept := s.samples[:0]
	for _, p := range s.samples {
		if p.provenance != Predicted {
			kept = append(kept, p)
		}
	}
	removed := len(s.samples) - len(kept)
	for i := len(kept); i < len(s.samples); i++ {
		s.samples[i] = nil
	}
	s.samples = kept
	return removed
}

// FinishedPrefixLength returns the length of the leading run of finalized,
// confirmed samples.
func (s *Stroke) FinishedPrefixLength() int {
	return s.FinishedPrefixFrom(0)
}

// FinishedPrefixFrom returns the length of the run of finalized, confirmed
// samples starting at start. Out-of-range starts yield 0.
func (s *Stroke) FinishedPrefixFrom(start int) int {
	if start < 0 || start >= len(s.samples) {
		return 0
	}
	n := 0
	for _, p := range s.samples[start:] {
		if !p.finalized || p.provenance == Predicted {
			break
		}
		n++
	}
	return n
}
