package repository

import "errors"

// Sentinel kinds for archive errors.
var (
	ErrNotFound     = errors.New("stroke not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidView  = errors.New("stroke view without id")
)
