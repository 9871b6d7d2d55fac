package render

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithSize sets the preview dimensions in pixels.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
		if height > 0 {
			r.height = height
		}
	}
}

// WithPadding sets the margin kept free around the stroke.
func WithPadding(p float64) Option {
	return func(r *Renderer) {
		if p >= 0 {
			r.padding = p
		}
	}
}
