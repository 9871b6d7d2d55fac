package replay

import "time"

// HTTP status code constants.
const (
	StatusOK              = 200
	StatusAccepted        = 202
	StatusTooManyRequests = 429
)

// Retry and polling constants.
const (
	maxSubmitAttempts = 5
	retryBackoff      = 50 * time.Millisecond
	pollInterval      = 100 * time.Millisecond
)
