package repository

// Option applies a configuration option to the ArchiveStore.
type Option func(*ArchiveStore)

// WithMaxSize bounds the number of archived strokes.
func WithMaxSize(n int) Option {
	return func(s *ArchiveStore) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithMaxListLimit caps how many snapshots a single List may return.
func WithMaxListLimit(n int) Option {
	return func(s *ArchiveStore) {
		if n > 0 {
			s.maxListLimit = n
		}
	}
}
