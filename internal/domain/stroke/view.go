package stroke

import (
	"time"

	"github.com/okian/inkflow/internal/domain/types"
)

// View copies the stroke into an immutable snapshot for consumers.
func (s *Stroke) View(surfaceID string, status types.Status) types.StrokeView {
	samples := make([]types.SampleView, len(s.samples))
	for i, p := range s.samples {
		samples[i] = types.SampleView{
			ID:         p.id.String(),
			Device:     p.device.String(),
			Provenance: p.provenance.String(),
			X:          p.position.X,
			Y:          p.position.Y,
			Pressure:   p.pressure,
			Altitude:   p.altitude,
			Azimuth:    p.azimuth,
			Finalized:  p.finalized,
		}
	}
	return types.StrokeView{
		ID:             s.id.String(),
		SurfaceID:      surfaceID,
		Device:         s.Device().String(),
		Status:         status,
		Finished:       s.IsFinished(),
		FinishedPrefix: s.FinishedPrefixLength(),
		PendingUpdates: len(s.pending),
		Samples:        samples,
		UpdatedAt:      time.Now().UTC(),
	}
}
