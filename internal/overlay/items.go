package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/maauso/editkit/internal/adjust"
)

// Stroke is a freehand line drawn with round caps and joins.
type Stroke struct {
	Points []adjust.Point
	Color  color.Color
	Width  float64
}

// Render draws the stroke. A single point renders as a dot.
func (s Stroke) Render(dc *gg.Context) {
	if len(s.Points) == 0 || s.Width <= 0 {
		return
	}
	dc.SetColor(s.Color)
	if len(s.Points) == 1 {
		dc.DrawCircle(s.Points[0].X, s.Points[0].Y, s.Width/2)
		dc.Fill()
		return
	}
	tracePath(dc, s.Points, s.Width)
	dc.Stroke()
}

// Mosaic reveals Source along a brush path. Source is usually a pixelated
// copy of the base image at layer size, see Pixelate.
type Mosaic struct {
	Points []adjust.Point
	Width  float64
	Source image.Image
}

// Render paints the revealed region of Source.
func (m Mosaic) Render(dc *gg.Context) {
	if len(m.Points) == 0 || m.Width <= 0 || m.Source == nil {
		return
	}

	brush := gg.NewContext(dc.Width(), dc.Height())
	brush.SetColor(color.White)
	if len(m.Points) == 1 {
		brush.DrawCircle(m.Points[0].X, m.Points[0].Y, m.Width/2)
		brush.Fill()
	} else {
		tracePath(brush, m.Points, m.Width)
		brush.Stroke()
	}

	if err := dc.SetMask(brush.AsMask()); err != nil {
		return
	}
	// Pop keeps the mask, so it must not outlive this item.
	defer dc.ResetClip()
	b := m.Source.Bounds()
	dc.DrawImage(m.Source, -b.Min.X, -b.Min.Y)
}

// Sticker is an image placed by its center, uniformly scaled and rotated.
type Sticker struct {
	Image  image.Image
	Center adjust.Point
	Scale  float64
	// Angle is the rotation in degrees, clockwise.
	Angle float64
}

// Render draws the sticker.
func (s Sticker) Render(dc *gg.Context) {
	if s.Image == nil {
		return
	}
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	dc.Translate(s.Center.X, s.Center.Y)
	dc.Rotate(gg.Radians(s.Angle))
	dc.Scale(scale, scale)
	dc.DrawImageAnchored(s.Image, 0, 0, 0.5, 0.5)
}

func tracePath(dc *gg.Context, points []adjust.Point, width float64) {
	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		dc.LineTo(p.X, p.Y)
	}
}

// Pixelate returns a copy of img scaled to size and reduced to square cells
// of cell pixels, the source a mosaic brush reveals.
func Pixelate(img image.Image, size image.Point, cell int) image.Image {
	if cell < 1 {
		cell = 1
	}
	small := image.NewRGBA(image.Rect(0, 0, max(1, size.X/cell), max(1, size.Y/cell)))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return out
}
