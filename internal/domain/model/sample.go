// Package model contains domain models passed between layers.
package model

// ContactType is the kind of physical contact reported by the input source.
type ContactType string

// Contact types reported by the surface. Anything unrecognised is treated
// as a finger.
const (
	ContactDirect          ContactType = "direct"
	ContactIndirect        ContactType = "indirect"
	ContactIndirectPointer ContactType = "indirect_pointer"
	ContactPencil          ContactType = "pencil"
)

// IsStylus reports whether the contact type comes from a stylus.
func (t ContactType) IsStylus() bool {
	return t == ContactPencil
}

// Phase is the lifecycle phase the source attached to a sample.
type Phase string

// Source phases.
const (
	PhaseBegan      Phase = "began"
	PhaseMoved      Phase = "moved"
	PhaseStationary Phase = "stationary"
	PhaseEnded      Phase = "ended"
	PhaseCancelled  Phase = "cancelled"
)

// Valid reports whether p is empty or a known phase.
func (p Phase) Valid() bool {
	switch p {
	case "", PhaseBegan, PhaseMoved, PhaseStationary, PhaseEnded, PhaseCancelled:
		return true
	}
	return false
}

// UpdateKey correlates an estimated property update with the sample it
// corrects. Keys are only unique while the update is in flight.
type UpdateKey int64

// RawSample is one observation of a contact exactly as the source reported it.
type RawSample struct {
	Type        ContactType `json:"type"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Force       float64     `json:"force"`
	MaxForce    float64     `json:"max_force"`
	MajorRadius float64     `json:"major_radius"`
	Altitude    float64     `json:"altitude"`
	Azimuth     float64     `json:"azimuth"`

	// UpdateKey is set when the source may later resolve estimated
	// properties of this sample.
	UpdateKey *UpdateKey `json:"update_key,omitempty"`

	// PendingProperties lists properties still expecting an update, e.g.
	// "force", "altitude", "azimuth", "location".
	PendingProperties []string `json:"pending_properties,omitempty"`

	Phase Phase `json:"phase,omitempty"`
}

// ExpectsUpdates reports whether more estimated updates will follow.
func (s *RawSample) ExpectsUpdates() bool {
	return len(s.PendingProperties) > 0
}

// Key returns the update key and whether one is present.
func (s *RawSample) Key() (UpdateKey, bool) {
	if s.UpdateKey == nil {
		return 0, false
	}
	return *s.UpdateKey, true
}

// KeyOf is a convenience for building a RawSample with an update key.
func KeyOf(k int64) *UpdateKey {
	key := UpdateKey(k)
	return &key
}
