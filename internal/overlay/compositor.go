package overlay

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Composite rasterizes each present layer in order (draw, mosaic, sticker as
// the caller passes them) and merges the rasters onto one canvas of target
// size, each scaled to fill it. Every layer that produced a raster is Reset,
// so its content is not applied again by the next export.
//
// Composite returns nil when no layer produced output; callers then skip the
// merge step entirely.
func Composite(layers []*Layer, target image.Point) image.Image {
	if target.X <= 0 || target.Y <= 0 {
		return nil
	}

	var canvas *image.RGBA
	for _, l := range layers {
		if l == nil {
			continue
		}
		raster := l.Rasterize()
		if raster == nil {
			continue
		}
		l.Reset()

		if canvas == nil {
			canvas = image.NewRGBA(image.Rect(0, 0, target.X, target.Y))
		}
		drawScaled(canvas, raster)
	}
	if canvas == nil {
		return nil
	}
	return canvas
}

// Merge draws overlay above base on a canvas of size pixels. Both images are
// scaled to fill the canvas, so an overlay recorded at view resolution lines
// up with a base rendered at export resolution.
func Merge(base, overlay image.Image, size image.Point) image.Image {
	if size.X <= 0 || size.Y <= 0 {
		b := base.Bounds()
		size = image.Pt(b.Dx(), b.Dy())
	}
	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	drawScaled(canvas, base)
	if overlay != nil {
		drawScaled(canvas, overlay)
	}
	return canvas
}

// drawScaled composites src over dst, scaling when the sizes differ.
func drawScaled(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	db := dst.Bounds()
	if sb.Size() == db.Size() {
		draw.Draw(dst, db, src, sb.Min, draw.Over)
		return
	}
	xdraw.CatmullRom.Scale(dst, db, src, sb, xdraw.Over, nil)
}
