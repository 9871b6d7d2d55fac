package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid inkflow config")
	// ErrLoadConfig wraps failures from the file, env or unmarshal step.
	ErrLoadConfig = errors.New("load inkflow config")
)
