// Package crop applies the geometric part of an adjustment factor to a
// still image: mirror, rotation, crop rectangle and clip shapes.
package crop

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/maauso/editkit/internal/adjust"
)

// ErrDegenerateRect is returned when the crop rectangle has no overlap with
// the transformed image.
var ErrDegenerateRect = errors.New("crop rectangle is degenerate")

// Apply transforms img according to f and crops it to rect.
//
// The order is fixed: mirror, rotate, crop, round mask, mask image. rect is
// expressed in the pixel space of the mirrored and rotated image. The zero
// Rect keeps the whole transformed image.
func Apply(img image.Image, rect adjust.Rect, f adjust.Factor) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDegenerateRect)
	}

	out := toRGBA(img)
	out = mirror(out, f.Mirror)
	out = Rotate(out, f.Angle)

	if rect != (adjust.Rect{}) {
		r := rect.Pixels().Intersect(out.Bounds())
		if r.Empty() {
			return nil, fmt.Errorf("%w: %v outside %v", ErrDegenerateRect, rect.Pixels(), out.Bounds())
		}
		if r != out.Bounds() {
			sub := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
			draw.Draw(sub, sub.Bounds(), out, r.Min, draw.Src)
			out = sub
		}
	}

	if f.IsRoundMask {
		out = roundClip(out)
	}
	if f.Mask != nil {
		out = maskClip(out, f.Mask)
	}
	return out, nil
}

// RectFor returns the crop rectangle stored in f as ratios, resolved against
// the pixel size of img once mirrored and rotated. It returns the zero Rect
// when f carries no crop.
func RectFor(img image.Image, f adjust.Factor) adjust.Rect {
	if !f.IsCropShape || f.CropSizeRatio.IsZero() {
		return adjust.Rect{}
	}
	b := img.Bounds()
	size := RotatedSize(adjust.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, f.Angle)
	return adjust.RectFromRatios(size, f.CropCenterRatio, f.CropSizeRatio)
}

// RotatedSize returns the bounding size of a w x h image rotated by angle
// degrees.
func RotatedSize(s adjust.Size, angle float64) adjust.Size {
	switch quarterTurns(angle) {
	case 0, 2:
		return s
	case 1, 3:
		return adjust.Size{Width: s.Height, Height: s.Width}
	}
	rad := angle * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	return adjust.Size{
		Width:  math.Ceil(s.Width*cos + s.Height*sin - 1e-9),
		Height: math.Ceil(s.Width*sin + s.Height*cos - 1e-9),
	}
}

// Rotate returns img rotated clockwise by angle degrees. Quarter turns are
// exact pixel moves; other angles are resampled onto an expanded, transparent
// canvas.
func Rotate(img *image.RGBA, angle float64) *image.RGBA {
	turns := quarterTurns(angle)
	if turns == 0 {
		return img
	}
	if turns > 0 {
		return rotateQuarter(img, turns)
	}

	b := img.Bounds()
	size := RotatedSize(adjust.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, angle)
	dst := image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))

	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	scx := float64(b.Min.X) + float64(b.Dx())/2
	scy := float64(b.Min.Y) + float64(b.Dy())/2
	dcx, dcy := size.Width/2, size.Height/2

	s2d := f64.Aff3{
		cos, -sin, dcx - (cos*scx - sin*scy),
		sin, cos, dcy - (sin*scx + cos*scy),
	}
	xdraw.BiLinear.Transform(dst, s2d, img, b, xdraw.Src, nil)
	return dst
}

// quarterTurns returns 0 to 3 for angles that are whole quarter turns, and
// -1 otherwise.
func quarterTurns(angle float64) int {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if math.Mod(a, 90) != 0 {
		return -1
	}
	return int(a/90) % 4
}

func rotateQuarter(src *image.RGBA, turns int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	var dst *image.RGBA
	if turns == 2 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch turns {
			case 1:
				dx, dy = h-1-y, x
			case 2:
				dx, dy = w-1-x, h-1-y
			case 3:
				dx, dy = y, w-1-x
			}
			copyPixel(dst, dx, dy, src, b.Min.X+x, b.Min.Y+y)
		}
	}
	return dst
}

func mirror(src *image.RGBA, m adjust.Point) *image.RGBA {
	flipX, flipY := m.X < 0, m.Y < 0
	if !flipX && !flipY {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x, y
			if flipX {
				dx = w - 1 - x
			}
			if flipY {
				dy = h - 1 - y
			}
			copyPixel(dst, dx, dy, src, b.Min.X+x, b.Min.Y+y)
		}
	}
	return dst
}

// roundClip keeps the ellipse inscribed in img.
func roundClip(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawEllipse(w/2, h/2, w/2, h/2)
	dc.Clip()
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	return toRGBA(dc.Image())
}

// maskClip uses the alpha of mask, scaled to fill img, as the clip shape.
func maskClip(img *image.RGBA, mask image.Image) *image.RGBA {
	b := img.Bounds()
	alpha := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.ApproxBiLinear.Scale(alpha, alpha.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.DrawMask(dst, dst.Bounds(), img, b.Min, alpha, image.Point{}, draw.Over)
	return dst
}

func copyPixel(dst *image.RGBA, dx, dy int, src *image.RGBA, sx, sy int) {
	si := src.PixOffset(sx, sy)
	di := dst.PixOffset(dx, dy)
	copy(dst.Pix[di:di+4], src.Pix[si:si+4])
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
