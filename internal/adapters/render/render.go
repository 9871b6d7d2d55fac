// Package render rasterizes stroke snapshots into PNG previews.
package render

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gg"
	"github.com/okian/inkflow/internal/domain/stroke"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/metrics"
)

const (
	defaultWidth   = 512
	defaultHeight  = 512
	defaultPadding = 16

	minLineWidth   = 1.0
	lineWidthRange = 7.0
)

// Renderer draws a stroke view onto a fixed-size canvas, scaled to fit.
// It holds no per-call state and is safe for concurrent use.
type Renderer struct {
	width   int
	height  int
	padding float64
}

// New creates a renderer with configuration options.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		width:   defaultWidth,
		height:  defaultHeight,
		padding: defaultPadding,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the preview dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// LineWidth maps a normalized pressure to a line width in pixels.
func LineWidth(pressure float64) float64 {
	return minLineWidth + lineWidthRange*math.Max(0, math.Min(1, pressure))
}

// Render draws the view and returns the encoded PNG.
func (r *Renderer) Render(view types.StrokeView) ([]byte, error) {
	if len(view.Samples) == 0 {
		return nil, ErrEmptyStroke
	}
	start := time.Now()
	defer func() {
		metrics.RecordPreviewLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	dc := gg.NewContext(r.width, r.height)
	defer func() { _ = dc.Close() }()
	dc.ClearWithColor(gg.White)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	fit := r.fit(view.Samples)

	if len(view.Samples) == 1 {
		s := view.Samples[0]
		x, y := fit.apply(s.X, s.Y)
		setColor(dc, s)
		dc.DrawCircle(x, y, LineWidth(s.Pressure)/2)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("fill sample: %w", err)
		}
	}

	for i := 1; i < len(view.Samples); i++ {
		from, to := view.Samples[i-1], view.Samples[i]
		x0, y0 := fit.apply(from.X, from.Y)
		x1, y1 := fit.apply(to.X, to.Y)
		setColor(dc, to)
		dc.SetLineWidth(LineWidth(to.Pressure))
		dc.MoveTo(x0, y0)
		dc.LineTo(x1, y1)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke segment %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Segments are colored by the provenance of their end point.
func setColor(dc *gg.Context, s types.SampleView) {
	switch {
	case s.Provenance == stroke.Predicted.String():
		dc.SetRGBA(0.35, 0.55, 0.9, 0.45)
	case !s.Finalized:
		dc.SetRGB(0.3, 0.3, 0.35)
	default:
		dc.SetRGB(0.08, 0.08, 0.12)
	}
}

type transform struct {
	scale float64
	offX  float64
	offY  float64
	minX  float64
	minY  float64
}

func (t transform) apply(x, y float64) (float64, float64) {
	return t.offX + (x-t.minX)*t.scale, t.offY + (y-t.minY)*t.scale
}

// fit centers the bounding box of the samples and scales it uniformly into
// the padded canvas. Degenerate boxes are drawn at unit scale.
func (r *Renderer) fit(samples []types.SampleView) transform {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range samples {
		minX, maxX = math.Min(minX, s.X), math.Max(maxX, s.X)
		minY, maxY = math.Min(minY, s.Y), math.Max(maxY, s.Y)
	}
	bw, bh := maxX-minX, maxY-minY
	availW := math.Max(1, float64(r.width)-2*r.padding)
	availH := math.Max(1, float64(r.height)-2*r.padding)

	scale := 1.0
	switch {
	case bw > 0 && bh > 0:
		scale = math.Min(availW/bw, availH/bh)
	case bw > 0:
		scale = availW / bw
	case bh > 0:
		scale = availH / bh
	}

	return transform{
		scale: scale,
		minX:  minX,
		minY:  minY,
		offX:  (float64(r.width) - bw*scale) / 2,
		offY:  (float64(r.height) - bh*scale) / 2,
	}
}
