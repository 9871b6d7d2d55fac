package queue

import "errors"

// Sentinel errors for queue operations.
var (
	ErrStopped = errors.New("queue stopped")
	ErrFull    = errors.New("queue full")
)
