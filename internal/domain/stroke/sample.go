// Package stroke holds the per-contact stroke model: sample points and the
// stroke that owns them.
//
// Nothing in this package is safe for concurrent mutation. Callers serialize
// every mutating call on a Stroke.
package stroke

import (
	"math"

	"github.com/google/uuid"
	"github.com/okian/inkflow/internal/domain/model"
)

// Pressure floors and the finger radius that maps to full pressure.
const (
	stylusPressureFloor       = 0.025
	fingerPressureFloor       = 0.25
	fingerUpdatePressureFloor = 0.025
	fingerFullRadius          = 100.0
)

// Device is the kind of input that produced a sample.
type Device int

// Devices.
const (
	Finger Device = iota
	Stylus
)

func (d Device) String() string {
	if d == Stylus {
		return "stylus"
	}
	return "finger"
}

// DeviceOf maps a source contact type to a Device. Unknown types are fingers.
func DeviceOf(t model.ContactType) Device {
	if t.IsStylus() {
		return Stylus
	}
	return Finger
}

// Provenance says whether a sample was observed or speculated.
type Provenance int

// Provenances.
const (
	Confirmed Provenance = iota
	Predicted
)

func (p Provenance) String() string {
	if p == Predicted {
		return "predicted"
	}
	return "confirmed"
}

// SamplePoint is one recorded point of a stroke. Only the owning Stroke
// changes it after creation.
type SamplePoint struct {
	id         uuid.UUID
	device     Device
	provenance Provenance

	position  model.Point
	pressure  float64
	altitude  float64
	azimuth   float64
	finalized bool
}

// NewSamplePoint creates a sample from a raw source observation.
func NewSamplePoint(provenance Provenance, raw *model.RawSample, frame model.Frame) *SamplePoint {
	p := &SamplePoint{
		id:         uuid.New(),
		device:     DeviceOf(raw.Type),
		provenance: provenance,
	}
	p.apply(raw, frame, fingerPressureFloor)
	return p
}

// update recomputes geometry and pressure from a later observation of the
// same sample. Finger pressure uses the lower update floor here.
func (p *SamplePoint) update(raw *model.RawSample, frame model.Frame) {
	p.apply(raw, frame, fingerUpdatePressureFloor)
}

func (p *SamplePoint) apply(raw *model.RawSample, frame model.Frame, fingerFloor float64) {
	p.position = frame.Position(raw.X, raw.Y)
	p.altitude = raw.Altitude
	p.azimuth = frame.Azimuth(raw.Azimuth)
	p.pressure = pressure(p.device, raw, fingerFloor)
}

func pressure(d Device, raw *model.RawSample, fingerFloor float64) float64 {
	if d == Stylus {
		if raw.MaxForce <= 0 {
			return stylusPressureFloor
		}
		return math.Max(stylusPressureFloor, raw.Force/raw.MaxForce)
	}
	return math.Max(fingerFloor, math.Min(raw.MajorRadius/fingerFullRadius, 1))
}

// ID returns the sample's unique id.
func (p *SamplePoint) ID() uuid.UUID { return p.id }

// Device returns the input device.
func (p *SamplePoint) Device() Device { return p.device }

// Provenance returns whether the sample is confirmed or predicted.
func (p *SamplePoint) Provenance() Provenance { return p.provenance }

// Position returns the sample position in the frame it was recorded in.
func (p *SamplePoint) Position() model.Point { return p.position }

// Pressure returns the normalized pressure.
func (p *SamplePoint) Pressure() float64 { return p.pressure }

// TiltAltitude returns the altitude angle.
func (p *SamplePoint) TiltAltitude() float64 { return p.altitude }

// TiltAzimuth returns the azimuth angle.
func (p *SamplePoint) TiltAzimuth() float64 { return p.azimuth }

// IsFinalized reports whether no further updates will change the sample.
func (p *SamplePoint) IsFinalized() bool { return p.finalized }
