// Package adjust describes the pending edits of one export as a single
// immutable value, the adjustment factor.
//
// A Factor is computed from live editor state right before an export, read
// by the export pipeline, and then discarded. It answers two questions: is
// there anything to export at all, and does the output need clipping.
package adjust

import (
	"image"
	"math"
)

// ratioTolerance absorbs floating point noise when deciding whether a crop
// rectangle still covers the whole content.
const ratioTolerance = 1e-6

// Factor is an immutable snapshot of all pending geometric and layer edits.
type Factor struct {
	HasDrawLayer    bool
	HasMosaicLayer  bool
	HasStickerLayer bool

	// IsCropShape is set when the crop rectangle no longer covers the content.
	IsCropShape bool
	IsRoundMask bool
	Mask        image.Image

	// Angle is the rotation in degrees, clockwise.
	Angle float64
	// Mirror holds the horizontal and vertical scale, each -1 or 1.
	// The zero value means no mirror information has been recorded.
	Mirror Point

	CropCenterRatio Point
	CropSizeRatio   Point

	StickerCenterRatio Point
	StickerSizeRatio   Point
}

// Empty returns the default factor.
func Empty() Factor {
	return Factor{}
}

// HasLayers reports whether any overlay layer carries content.
func (f Factor) HasLayers() bool {
	return f.HasDrawLayer || f.HasMosaicLayer || f.HasStickerLayer
}

// IsClip reports whether the output must be clipped to a shape.
func (f Factor) IsClip() bool {
	return f.IsCropShape || f.IsRoundMask || f.Mask != nil
}

// IsRotated reports whether the angle is not a whole number of turns.
func (f Factor) IsRotated() bool {
	return math.Mod(f.Angle, 360) != 0
}

// IsEmpty reports whether every field is at its default.
func (f Factor) IsEmpty() bool {
	return !f.HasLayers() &&
		!f.IsCropShape &&
		!f.IsRoundMask &&
		f.Mask == nil &&
		f.Angle == 0 &&
		f.Mirror.IsZero() &&
		f.CropCenterRatio.IsZero() &&
		f.CropSizeRatio.IsZero() &&
		f.StickerCenterRatio.IsZero() &&
		f.StickerSizeRatio.IsZero()
}

// AllowsExport is the gate checked before any export work starts. It is
// false for the empty factor and for an edit that would reproduce its input:
// no clip shape, no rotation, an identity mirror and no layers.
func (f Factor) AllowsExport() bool {
	if f.IsEmpty() {
		return false
	}
	noop := !f.IsClip() &&
		!f.IsRotated() &&
		f.Mirror.X*f.Mirror.Y > 0 &&
		!f.HasLayers()
	return !noop
}

// Equal compares every field except layer presence and the sticker ratios.
// It is used to detect that nothing changed since the previous export.
func (f Factor) Equal(o Factor) bool {
	return f.IsCropShape == o.IsCropShape &&
		f.IsRoundMask == o.IsRoundMask &&
		sameImage(f.Mask, o.Mask) &&
		f.Angle == o.Angle &&
		f.Mirror == o.Mirror &&
		f.CropCenterRatio == o.CropCenterRatio &&
		f.CropSizeRatio == o.CropSizeRatio
}

// sameImage compares mask handles by identity. Comparing interfaces whose
// dynamic type is not comparable panics, so only the standard pointer image
// types are compared; any other mask never equals a previous one.
func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a.(type) {
	case *image.RGBA, *image.NRGBA, *image.Alpha, *image.Gray, *image.Paletted, *image.RGBA64, *image.NRGBA64, *image.Alpha16, *image.Gray16, *image.YCbCr, *image.CMYK, *image.Uniform:
		return a == b
	}
	return false
}

// Layers records which overlay surfaces hold content at export time.
type Layers struct {
	Draw    bool
	Mosaic  bool
	Sticker bool
}

// CropGeometry is the crop rectangle expressed in content coordinates.
type CropGeometry struct {
	// ContentSize is the size of the content the crop rectangle lives in.
	ContentSize Size
	// CropRect is the visible crop frame in content coordinates.
	CropRect Rect
}

// Ratios returns the center and size of the crop rectangle relative to the
// content bounds. An empty content size yields zero ratios.
func (g CropGeometry) Ratios() (center, size Point) {
	if g.ContentSize.IsEmpty() {
		return Point{}, Point{}
	}
	center = Point{
		X: g.CropRect.MidX() / g.ContentSize.Width,
		Y: g.CropRect.MidY() / g.ContentSize.Height,
	}
	size = Point{
		X: g.CropRect.Width / g.ContentSize.Width,
		Y: g.CropRect.Height / g.ContentSize.Height,
	}
	return center, size
}

// CoversContent reports whether the crop rectangle spans the full content.
func (g CropGeometry) CoversContent() bool {
	center, size := g.Ratios()
	return near(center.X, 0.5) && near(center.Y, 0.5) && near(size.X, 1) && near(size.Y, 1)
}

// Input gathers the live editor state a Factor is computed from.
type Input struct {
	Layers    Layers
	Crop      CropGeometry
	Angle     float64
	Mirror    Point
	RoundMask bool
	Mask      image.Image

	StickerCenterRatio Point
	StickerSizeRatio   Point
}

// Compute builds a Factor from editor state. It has no side effects.
func Compute(in Input) Factor {
	center, size := in.Crop.Ratios()
	isCrop := !in.Crop.ContentSize.IsEmpty() && !in.Crop.CoversContent()
	return Factor{
		HasDrawLayer:       in.Layers.Draw,
		HasMosaicLayer:     in.Layers.Mosaic,
		HasStickerLayer:    in.Layers.Sticker,
		IsCropShape:        isCrop,
		IsRoundMask:        in.RoundMask,
		Mask:               in.Mask,
		Angle:              in.Angle,
		Mirror:             in.Mirror,
		CropCenterRatio:    center,
		CropSizeRatio:      size,
		StickerCenterRatio: in.StickerCenterRatio,
		StickerSizeRatio:   in.StickerSizeRatio,
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= ratioTolerance
}
