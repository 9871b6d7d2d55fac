package render

import "errors"

// Sentinel errors for preview rendering.
var (
	ErrEmptyStroke = errors.New("stroke has no samples")
)
