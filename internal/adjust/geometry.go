package adjust

import (
	"image"
	"math"
)

// Point is a pair of floating point coordinates or ratios.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mul returns p scaled by s on both axes.
func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// IsZero reports whether both components are zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Size is a width and height in points or pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether either dimension is not positive.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis aligned rectangle with a floating point origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MinX returns the left edge.
func (r Rect) MinX() float64 { return r.X }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MidX returns the horizontal center.
func (r Rect) MidX() float64 { return r.X + r.Width/2 }

// MidY returns the vertical center.
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Scale multiplies origin and size by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

// Pixels rounds the rectangle to integer pixel bounds.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
}

// RectFromRatios rebuilds a rectangle inside bounds from a center ratio and
// a size ratio, the inverse of the ratios stored in a Factor.
func RectFromRatios(bounds Size, center, size Point) Rect {
	w := size.X * bounds.Width
	h := size.Y * bounds.Height
	return Rect{
		X:      center.X*bounds.Width - w/2,
		Y:      center.Y*bounds.Height - h/2,
		Width:  w,
		Height: h,
	}
}
