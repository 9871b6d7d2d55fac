package tracker

import (
	"github.com/okian/inkflow/internal/domain/stroke"
	"github.com/okian/inkflow/internal/domain/types"
)

// Views snapshots a dispatched set. A cancelled stroke keeps the cancelled
// status even while it is still reported as updating.
func Views(surfaceID string, kind types.NotificationKind, strokes []*stroke.Stroke) []types.StrokeView {
	status := kind.Status()
	out := make([]types.StrokeView, len(strokes))
	for i, s := range strokes {
		st := status
		if s.Cancelled() {
			st = types.StatusCancelled
		}
		out[i] = s.View(surfaceID, st)
	}
	return out
}
