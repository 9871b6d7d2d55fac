package model

import "errors"

// Sentinel kinds for input validation errors.
var (
	ErrInvalidBatch = errors.New("invalid batch")
)
