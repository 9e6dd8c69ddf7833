package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"time"
)

// ErrNoFrames is returned when an animation has no frames.
var ErrNoFrames = errors.New("animation contains no frames")

// gifDelayUnit is the resolution of GIF frame delays.
const gifDelayUnit = 10 * time.Millisecond

// framePalette is Plan 9 with one dark entry given up for transparency, so
// clip shapes survive in the container.
var framePalette = func() color.Palette {
	p := append(color.Palette{}, palette.Plan9...)
	p[transparentIndex] = color.Transparent
	return p
}()

// transparentIndex replaces 0x000044, a step away from black.
const transparentIndex = 1

// Frame is one image of an animation and how long it stays on screen.
type Frame struct {
	Image image.Image
	Delay time.Duration
}

// IsAnimated reports whether data is a GIF with more than one frame.
func IsAnimated(data []byte) bool {
	if !DetectContentType(data).IsGIF() {
		return false
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

// DecodeFrames decodes an animated GIF into fully composited frames,
// honouring each frame's disposal method.
func DecodeFrames(r io.Reader) ([]Frame, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, ErrNoFrames
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	frames := make([]Frame, 0, len(g.Image))
	for i, src := range g.Image {
		var saved *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = cloneRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		var delay time.Duration
		if i < len(g.Delay) {
			delay = time.Duration(g.Delay[i]) * gifDelayUnit
		}
		frames = append(frames, Frame{Image: cloneRGBA(canvas), Delay: delay})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	return frames, nil
}

// EncodeFrames writes frames as an endlessly looping GIF. Frames are
// quantized to the Plan 9 palette with Floyd-Steinberg dithering; pixels
// under half alpha become transparent.
func EncodeFrames(w io.Writer, frames []Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	out := &gif.GIF{
		Image:    make([]*image.Paletted, 0, len(frames)),
		Delay:    make([]int, 0, len(frames)),
		Disposal: make([]byte, 0, len(frames)),
	}

	var bounds image.Rectangle
	for i, f := range frames {
		if f.Image == nil {
			return fmt.Errorf("frame %d: %w", i, ErrNilImage)
		}
		b := f.Image.Bounds()
		rect := image.Rect(0, 0, b.Dx(), b.Dy())
		bounds = bounds.Union(rect)

		out.Image = append(out.Image, quantize(f.Image))
		out.Delay = append(out.Delay, int(f.Delay/gifDelayUnit))
		out.Disposal = append(out.Disposal, gif.DisposalBackground)
	}
	out.Config.Width = bounds.Dx()
	out.Config.Height = bounds.Dy()

	if err := gif.EncodeAll(w, out); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// quantize maps img onto framePalette. The result starts at the origin.
func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), framePalette)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			_, _, _, a := c.RGBA()
			switch {
			case a < 0x8000:
				p.SetColorIndex(x, y, transparentIndex)
			case p.ColorIndexAt(x, y) == transparentIndex:
				// Dithered alpha error; fall back to the nearest solid colour.
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				n.A = 0xff
				p.SetColorIndex(x, y, uint8(framePalette.Index(n)))
			}
		}
	}
	return p
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
