// Package editor holds the live edit state of one image and turns it into
// export requests.
package editor

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/maauso/editkit/internal/adjust"
	"github.com/maauso/editkit/internal/crop"
	"github.com/maauso/editkit/internal/export"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/overlay"
)

// Session is the edit state of one image: its crop, rotation, mirror and
// clip shapes, and the overlay layers drawn above it. It is safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	image  image.Image
	frames []media.Frame
	size   image.Point

	cropRect  adjust.Rect
	angle     float64
	mirror    adjust.Point
	roundMask bool
	mask      image.Image

	imageScale  float64
	exportScale float64

	draw    *overlay.Layer
	mosaic  *overlay.Layer
	sticker *overlay.Layer

	stickerCenter adjust.Point
	stickerSize   adjust.Point

	last *adjust.Factor
}

// NewSession starts editing a still image. The crop initially covers the
// whole image.
func NewSession(img image.Image) *Session {
	return newSession(img, nil)
}

// NewAnimatedSession starts editing an animation; frame geometry follows the
// first frame.
func NewAnimatedSession(frames []media.Frame) *Session {
	var first image.Image
	if len(frames) > 0 {
		first = frames[0].Image
	}
	return newSession(first, frames)
}

func newSession(img image.Image, frames []media.Frame) *Session {
	var size image.Point
	if img != nil {
		size = img.Bounds().Size()
	}
	return &Session{
		image:       img,
		frames:      frames,
		size:        size,
		cropRect:    adjust.Rect{Width: float64(size.X), Height: float64(size.Y)},
		mirror:      adjust.Point{X: 1, Y: 1},
		imageScale:  1,
		exportScale: 1,
		draw:        overlay.NewLayer(overlay.KindDraw, size),
		mosaic:      overlay.NewLayer(overlay.KindMosaic, size),
		sticker:     overlay.NewLayer(overlay.KindSticker, size),
	}
}

// Size returns the pixel size of the edited image.
func (s *Session) Size() image.Point {
	return s.size
}

// Layer returns the overlay surface of the given kind.
func (s *Session) Layer(kind overlay.Kind) *overlay.Layer {
	switch kind {
	case overlay.KindMosaic:
		return s.mosaic
	case overlay.KindSticker:
		return s.sticker
	default:
		return s.draw
	}
}

// AddSticker places a sticker and records its placement relative to the
// image bounds.
func (s *Session) AddSticker(st overlay.Sticker) {
	s.sticker.Add(st)
	if st.Image == nil || s.size.X == 0 || s.size.Y == 0 {
		return
	}
	b := st.Image.Bounds()
	scale := st.Scale
	if scale <= 0 {
		scale = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stickerCenter = adjust.Point{X: st.Center.X / float64(s.size.X), Y: st.Center.Y / float64(s.size.Y)}
	s.stickerSize = adjust.Point{
		X: float64(b.Dx()) * scale / float64(s.size.X),
		Y: float64(b.Dy()) * scale / float64(s.size.Y),
	}
}

// MosaicSource returns a pixelated copy of the image, the source for mosaic
// smears.
func (s *Session) MosaicSource(cell int) image.Image {
	if s.image == nil {
		return nil
	}
	return overlay.Pixelate(s.image, s.size, cell)
}

// SetCrop sets the crop rectangle in the pixel space of the rotated image.
func (s *Session) SetCrop(r adjust.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cropRect = r
}

// Rotate turns the image by deg degrees clockwise. The crop is reset to the
// new bounds.
func (s *Session) Rotate(deg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle = math.Mod(s.angle+deg, 360)
	s.cropRect = s.fullCrop()
}

// Angle returns the accumulated rotation.
func (s *Session) Angle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Mirror flips the image horizontally, or vertically when vertical is set.
func (s *Session) Mirror(vertical bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vertical {
		s.mirror.Y = -s.mirror.Y
	} else {
		s.mirror.X = -s.mirror.X
	}
}

// SetRoundMask toggles the round clip shape.
func (s *Session) SetRoundMask(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundMask = on
}

// SetMask sets an image whose alpha clips the output, or clears it with nil.
func (s *Session) SetMask(mask image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = mask
}

// SetScales sets the pixel density the image was loaded at and the density
// of the export. Non-positive values are ignored.
func (s *Session) SetScales(imageScale, exportScale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imageScale > 0 {
		s.imageScale = imageScale
	}
	if exportScale > 0 {
		s.exportScale = exportScale
	}
}

// Reset discards every edit.
func (s *Session) Reset() {
	s.mu.Lock()
	s.angle = 0
	s.mirror = adjust.Point{X: 1, Y: 1}
	s.roundMask = false
	s.mask = nil
	s.stickerCenter = adjust.Point{}
	s.stickerSize = adjust.Point{}
	s.cropRect = s.fullCrop()
	s.mu.Unlock()

	s.draw.UndoAll()
	s.mosaic.UndoAll()
	s.sticker.UndoAll()
}

func (s *Session) fullCrop() adjust.Rect {
	bounds := crop.RotatedSize(adjustSize(s.size), s.angle)
	return adjust.Rect{Width: bounds.Width, Height: bounds.Height}
}

// Factor computes the adjustment factor for the current state.
func (s *Session) Factor() adjust.Factor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.factor()
}

func (s *Session) factor() adjust.Factor {
	content := s.fullCrop()
	return adjust.Compute(adjust.Input{
		Layers: adjust.Layers{
			Draw:    s.draw.Len() > 0,
			Mosaic:  s.mosaic.Len() > 0,
			Sticker: s.sticker.Len() > 0,
		},
		Crop: adjust.CropGeometry{
			ContentSize: adjust.Size{Width: content.Width, Height: content.Height},
			CropRect:    s.cropRect,
		},
		Angle:              s.angle,
		Mirror:             s.mirror,
		RoundMask:          s.roundMask,
		Mask:               s.mask,
		StickerCenterRatio: s.stickerCenter,
		StickerSizeRatio:   s.stickerSize,
	})
}

// Changed reports whether the state differs from the last export.
func (s *Session) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return true
	}
	f := s.factor()
	return f.HasLayers() || !f.Equal(*s.last)
}

// Request builds the export request for the current state.
func (s *Session) Request(dst *export.Destination) export.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := export.Request{
		ImageScale:  s.imageScale,
		ExportScale: s.exportScale,
		CropRect:    s.cropRect,
		Factor:      s.factor(),
		Layers:      []*overlay.Layer{s.draw, s.mosaic, s.sticker},
		Destination: dst,
	}
	if s.frames != nil {
		req.Frames = s.frames
	} else {
		req.Image = s.image
	}
	return req
}

// Export runs the current state through e and remembers the factor it used.
func (s *Session) Export(ctx context.Context, e *export.Exporter, dst *export.Destination) (*export.Result, error) {
	res, err := e.Export(ctx, s.Request(dst))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	f := res.Adjustment
	s.last = &f
	s.mu.Unlock()
	return res, nil
}

func adjustSize(p image.Point) adjust.Size {
	return adjust.Size{Width: float64(p.X), Height: float64(p.Y)}
}
