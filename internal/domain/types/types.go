// Package types contains the read shapes handed to stroke consumers.
package types

import "time"

// Status is where a stroke is in its lifecycle as seen by consumers.
type Status string

// Stroke statuses.
const (
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further changes will be made to the stroke.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// ParseStatus maps a query value to a Status. Empty means any.
func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case "", StatusActive, StatusFinished, StatusCancelled:
		return Status(v), true
	}
	return "", false
}

// SampleView is an immutable copy of one sample point.
type SampleView struct {
	ID         string  `json:"id"`
	Device     string  `json:"device"`
	Provenance string  `json:"provenance"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Pressure   float64 `json:"pressure"`
	Altitude   float64 `json:"altitude"`
	Azimuth    float64 `json:"azimuth"`
	Finalized  bool    `json:"finalized"`
}

// StrokeView is a consistent snapshot of a stroke at one moment.
type StrokeView struct {
	ID             string       `json:"id"`
	SurfaceID      string       `json:"surface_id"`
	Device         string       `json:"device"`
	Status         Status       `json:"status"`
	Finished       bool         `json:"finished"`
	FinishedPrefix int          `json:"finished_prefix"`
	PendingUpdates int          `json:"pending_updates"`
	Samples        []SampleView `json:"samples"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NotificationKind names the dispatcher callback a notification came from.
type NotificationKind string

// Notification kinds.
const (
	NotifyCreated   NotificationKind = "created"
	NotifyUpdated   NotificationKind = "updated"
	NotifyFinished  NotificationKind = "finished"
	NotifyCancelled NotificationKind = "cancelled"
)

// Status returns the stroke status implied by the notification kind.
func (k NotificationKind) Status() Status {
	switch k {
	case NotifyFinished:
		return StatusFinished
	case NotifyCancelled:
		return StatusCancelled
	default:
		return StatusActive
	}
}

// Notification is one dispatched stroke set.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	SurfaceID string           `json:"surface_id"`
	Strokes   []StrokeView     `json:"strokes"`
	At        time.Time        `json:"at"`
}

// EngineStats is the GET /stats response.
type EngineStats struct {
	Started         bool  `json:"started"`
	QueueSize       int   `json:"queueSize"`
	QueueLength     int   `json:"queueLength"`
	DedupeSize      int   `json:"dedupeSize"`
	SeenBatches     int64 `json:"seenBatches"`
	Surfaces        int   `json:"surfaces"`
	ActiveStrokes   int64 `json:"activeStrokes"`
	PendingUpdates  int64 `json:"pendingUpdates"`
	AppliedBatches  int64 `json:"appliedBatches"`
	FailedBatches   int64 `json:"failedBatches"`
	ArchivedStrokes int   `json:"archivedStrokes"`
	StreamClients   int   `json:"streamClients"`
}
