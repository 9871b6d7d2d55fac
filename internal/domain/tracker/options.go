package tracker

import "github.com/okian/inkflow/pkg/logger"

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger used for per-batch diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracker replaces the surface's tracker. Mainly for tests.
func WithTracker(t *Tracker) Option {
	return func(s *Surface) {
		if t != nil {
			s.tracker = t
		}
	}
}
