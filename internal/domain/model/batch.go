package model

import (
	"fmt"
	"strings"
)

// EventKind says which surface callback a batch represents.
type EventKind string

// Batch kinds.
const (
	KindBegan     EventKind = "began"
	KindMoved     EventKind = "moved"
	KindEnded     EventKind = "ended"
	KindCancelled EventKind = "cancelled"
	KindEstimated EventKind = "estimated"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case KindBegan, KindMoved, KindEnded, KindCancelled, KindEstimated:
		return true
	}
	return false
}

// Allows reports whether a primary sample in phase p may arrive in a batch
// of kind k. An empty phase is always allowed; estimates arrive in any phase.
func (k EventKind) Allows(p Phase) bool {
	if p == "" || k == KindEstimated {
		return true
	}
	switch k {
	case KindBegan:
		return p == PhaseBegan
	case KindMoved:
		return p == PhaseMoved || p == PhaseStationary
	case KindEnded:
		return p == PhaseEnded
	case KindCancelled:
		return p == PhaseCancelled
	}
	return false
}

// Contact carries everything one batch delivered for a single contact id.
type Contact struct {
	ID     string    `json:"id"`
	Sample RawSample `json:"sample"`

	// Coalesced holds the confirmed samples collapsed since the previous
	// batch. Nil means the source gave none, so Sample stands alone.
	Coalesced []RawSample `json:"coalesced,omitempty"`

	// Predicted holds speculative samples ahead of Sample.
	Predicted []RawSample `json:"predicted,omitempty"`
}

// Batch is one delivery from a surface: a kind plus the contacts it touched.
type Batch struct {
	BatchID   string    `json:"batch_id"`
	SurfaceID string    `json:"surface_id"`
	Kind      EventKind `json:"kind"`
	Frame     Frame     `json:"frame"`
	Contacts  []Contact `json:"contacts"`
}

// Validate checks the batch is processable.
func (b *Batch) Validate() error {
	switch {
	case strings.TrimSpace(b.BatchID) == "":
		return fmt.Errorf("%w: missing batch_id", ErrInvalidBatch)
	case strings.TrimSpace(b.SurfaceID) == "":
		return fmt.Errorf("%w: missing surface_id", ErrInvalidBatch)
	case !b.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBatch, b.Kind)
	}
	seen := make(map[string]struct{}, len(b.Contacts))
	for i := range b.Contacts {
		id := b.Contacts[i].ID
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: contact %d missing id", ErrInvalidBatch, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: contact %q repeated", ErrInvalidBatch, id)
		}
		seen[id] = struct{}{}

		phase := b.Contacts[i].Sample.Phase
		if !phase.Valid() {
			return fmt.Errorf("%w: contact %q has unknown phase %q", ErrInvalidBatch, id, phase)
		}
		if !b.Kind.Allows(phase) {
			return fmt.Errorf("%w: contact %q in phase %q cannot be %s", ErrInvalidBatch, id, phase, b.Kind)
		}
	}
	return nil
}

// Lookup returns the samples a batch carried for a contact id, and whether
// the source supplied a list at all.
type Lookup func(contactID string) ([]RawSample, bool)

// Lookups builds the coalesced and predicted lookups for the batch.
func (b *Batch) Lookups() (coalesced, predicted Lookup) {
	byID := make(map[string]*Contact, len(b.Contacts))
	for i := range b.Contacts {
		byID[b.Contacts[i].ID] = &b.Contacts[i]
	}
	coalesced = func(id string) ([]RawSample, bool) {
		c, ok := byID[id]
		if !ok || c.Coalesced == nil {
			return nil, false
		}
		return c.Coalesced, true
	}
	predicted = func(id string) ([]RawSample, bool) {
		c, ok := byID[id]
		if !ok || c.Predicted == nil {
			return nil, false
		}
		return c.Predicted, true
	}
	return coalesced, predicted
}
