// Package repository keeps the latest snapshot of every recent stroke.
package repository

import (
	"context"

	"github.com/okian/inkflow/internal/domain/types"
)

// Query filters a listing. Empty fields match everything.
type Query struct {
	SurfaceID string
	Status    types.Status
	Limit     int
}

// Store provides read/write access to archived stroke snapshots.
type Store interface {
	// Upsert records the latest snapshot of a stroke.
	Upsert(ctx context.Context, view types.StrokeView) error

	// Get returns a stroke snapshot by id.
	// Returns ErrNotFound if the stroke is unknown or was evicted.
	Get(ctx context.Context, id string) (types.StrokeView, error)

	// List returns snapshots matching q, most recently updated first.
	// Returns ErrInvalidLimit when q.Limit < 1.
	List(ctx context.Context, q Query) ([]types.StrokeView, error)

	// Count returns the number of archived strokes.
	Count(ctx context.Context) int
}
