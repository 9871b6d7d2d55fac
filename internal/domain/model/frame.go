package model

import "math"

// Frame is the caller-supplied reference frame samples are mapped into.
// The zero Frame is the identity.
type Frame struct {
	OriginX  float64 `json:"origin_x"`
	OriginY  float64 `json:"origin_y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"` // radians
}

// Point is a position in a Frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position maps a raw source location into the frame.
func (f Frame) Position(x, y float64) Point {
	dx, dy := x-f.OriginX, y-f.OriginY
	if f.Rotation != 0 {
		sin, cos := math.Sincos(-f.Rotation)
		dx, dy = dx*cos-dy*sin, dx*sin+dy*cos
	}
	scale := f.Scale
	if scale == 0 {
		scale = 1
	}
	return Point{X: dx * scale, Y: dy * scale}
}

// Azimuth maps a raw azimuth angle into the frame.
func (f Frame) Azimuth(azimuth float64) float64 {
	return azimuth - f.Rotation
}
