package replay

import (
	"fmt"
	"slices"

	"github.com/okian/inkflow/internal/domain/types"
)

// Verify checks that the finished strokes of a surface match the sessions
// drawn on it. Strokes carry no contact id, so they are matched by their
// sample counts.
func Verify(sessions []Session, finished []types.StrokeView) error {
	if len(finished) != len(sessions) {
		return fmt.Errorf("expected %d finished strokes, found %d", len(sessions), len(finished))
	}

	want := make([]int, len(sessions))
	for i, s := range sessions {
		want[i] = s.Samples
	}
	got := make([]int, len(finished))
	for i, v := range finished {
		if !v.Finished || v.PendingUpdates != 0 {
			return fmt.Errorf("stroke %s reported finished with %d pending updates", v.ID, v.PendingUpdates)
		}
		if v.FinishedPrefix != len(v.Samples) {
			return fmt.Errorf("stroke %s has finished prefix %d of %d samples", v.ID, v.FinishedPrefix, len(v.Samples))
		}
		for _, s := range v.Samples {
			if s.Provenance != "confirmed" {
				return fmt.Errorf("stroke %s kept a %s sample", v.ID, s.Provenance)
			}
		}
		got[i] = len(v.Samples)
	}

	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		return fmt.Errorf("sample counts differ: want %v, got %v", want, got)
	}
	return nil
}
