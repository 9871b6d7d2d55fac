package stream

import "errors"

// Sentinel errors for the stream hub.
var (
	ErrHubClosed = errors.New("stream hub closed")
)
