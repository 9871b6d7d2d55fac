package tracker

import (
	"context"

	"github.com/okian/inkflow/internal/domain/stroke"
)

// Dispatcher receives stroke sets after each surface call. Sets are never
// empty. Strokes are only valid for the duration of the call; consumers
// that keep them must take a View.
type Dispatcher interface {
	StrokesCreated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke)
	StrokesUpdated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke)
	StrokesFinished(ctx context.Context, surfaceID string, strokes []*stroke.Stroke)
	StrokesCancelled(ctx context.Context, surfaceID string, strokes []*stroke.Stroke)
}

// Multi fans every notification out to several dispatchers in order.
type Multi []Dispatcher

// StrokesCreated implements Dispatcher.
func (m Multi) StrokesCreated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	for _, d := range m {
		d.StrokesCreated(ctx, surfaceID, strokes)
	}
}

// StrokesUpdated implements Dispatcher.
func (m Multi) StrokesUpdated(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	for _, d := range m {
		d.StrokesUpdated(ctx, surfaceID, strokes)
	}
}

// StrokesFinished implements Dispatcher.
func (m Multi) StrokesFinished(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	for _, d := range m {
		d.StrokesFinished(ctx, surfaceID, strokes)
	}
}

// StrokesCancelled implements Dispatcher.
func (m Multi) StrokesCancelled(ctx context.Context, surfaceID string, strokes []*stroke.Stroke) {
	for _, d := range m {
		d.StrokesCancelled(ctx, surfaceID, strokes)
	}
}
