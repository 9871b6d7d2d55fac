package replay

import (
	"time"

	"github.com/okian/inkflow/internal/domain/model"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Surfaces      int           // Number of independent surfaces
	Sessions      int           // Strokes drawn on each surface
	Moves         int           // Moved batches per stroke
	Workers       int           // Surfaces replayed concurrently
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for strokes to finish
	Seed          uint64        // Generator seed; 0 picks one from the clock
	OutputFile    string        // Where to save generated batches, if set
	Verbose       bool          // Enable verbose logging
}

// Session is one generated stroke: the batches that draw it, in order.
type Session struct {
	SurfaceID string         `json:"surface_id"`
	ContactID string         `json:"contact_id"`
	Stylus    bool           `json:"stylus"`
	Batches   []*model.Batch `json:"batches"`

	// Samples is how many samples the stroke must hold once finished.
	Samples int `json:"samples"`
}

// AckResponse mirrors the body returned by POST /batches.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsGenerated int
	BatchesGenerated  int
	BatchesAccepted   int
	BatchesDuplicate  int
	BatchesRetried    int
	BatchesFailed     int
	StrokesVerified   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
