package adjust

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullCrop() CropGeometry {
	return CropGeometry{
		ContentSize: Size{Width: 400, Height: 300},
		CropRect:    Rect{X: 0, Y: 0, Width: 400, Height: 300},
	}
}

func TestFactor_DefaultIsEmpty(t *testing.T) {
	f := Empty()
	assert.True(t, f.IsEmpty())
	assert.False(t, f.AllowsExport())
	assert.False(t, Factor{}.AllowsExport())
}

func TestFactor_AllowsExport(t *testing.T) {
	base := Input{Crop: fullCrop(), Mirror: Point{X: 1, Y: 1}}

	tests := []struct {
		name   string
		modify func(in *Input)
		want   bool
	}{
		{"full crop identity mirror", func(in *Input) {}, false},
		{"rotated", func(in *Input) { in.Angle = 90 }, true},
		{"rotated full turn", func(in *Input) { in.Angle = 360 }, false},
		{"mirrored horizontally", func(in *Input) { in.Mirror = Point{X: -1, Y: 1} }, true},
		{"mirrored vertically", func(in *Input) { in.Mirror = Point{X: 1, Y: -1} }, true},
		{"cropped", func(in *Input) { in.Crop.CropRect = Rect{X: 10, Y: 10, Width: 200, Height: 100} }, true},
		{"round mask", func(in *Input) { in.RoundMask = true }, true},
		{"mask image", func(in *Input) { in.Mask = image.NewAlpha(image.Rect(0, 0, 2, 2)) }, true},
		{"draw layer", func(in *Input) { in.Layers.Draw = true }, true},
		{"mosaic layer", func(in *Input) { in.Layers.Mosaic = true }, true},
		{"sticker layer", func(in *Input) { in.Layers.Sticker = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			f := Compute(in)
			assert.Equal(t, tt.want, f.AllowsExport())
		})
	}
}

func TestCompute_Ratios(t *testing.T) {
	f := Compute(Input{
		Crop: CropGeometry{
			ContentSize: Size{Width: 200, Height: 100},
			CropRect:    Rect{X: 50, Y: 25, Width: 100, Height: 50},
		},
	})

	assert.True(t, f.IsCropShape)
	assert.InDelta(t, 0.5, f.CropCenterRatio.X, 1e-9)
	assert.InDelta(t, 0.5, f.CropCenterRatio.Y, 1e-9)
	assert.InDelta(t, 0.5, f.CropSizeRatio.X, 1e-9)
	assert.InDelta(t, 0.5, f.CropSizeRatio.Y, 1e-9)
}

func TestCompute_FullCropIsNotCropShape(t *testing.T) {
	f := Compute(Input{Crop: fullCrop()})
	assert.False(t, f.IsCropShape)
	assert.False(t, f.IsClip())
	assert.False(t, f.IsEmpty(), "ratios of a full crop are not zero")
}

func TestFactor_Equal(t *testing.T) {
	a := Compute(Input{Crop: fullCrop(), Mirror: Point{X: 1, Y: 1}, Angle: 90})

	t.Run("ignores layer presence", func(t *testing.T) {
		b := a
		b.HasDrawLayer = true
		b.HasStickerLayer = true
		assert.True(t, a.Equal(b))
	})

	t.Run("ignores sticker ratios", func(t *testing.T) {
		b := a
		b.StickerCenterRatio = Point{X: 0.2, Y: 0.3}
		b.StickerSizeRatio = Point{X: 0.1, Y: 0.1}
		assert.True(t, a.Equal(b))
	})

	t.Run("detects angle change", func(t *testing.T) {
		b := a
		b.Angle = 180
		assert.False(t, a.Equal(b))
	})

	t.Run("detects mirror change", func(t *testing.T) {
		b := a
		b.Mirror = Point{X: -1, Y: 1}
		assert.False(t, a.Equal(b))
	})

	t.Run("compares masks by identity", func(t *testing.T) {
		m1 := image.NewAlpha(image.Rect(0, 0, 1, 1))
		m2 := image.NewAlpha(image.Rect(0, 0, 1, 1))
		b, c := a, a
		b.Mask, c.Mask = m1, m1
		assert.True(t, b.Equal(c))
		c.Mask = m2
		assert.False(t, b.Equal(c))
	})

	t.Run("value masks never match", func(t *testing.T) {
		m := sliceMask{pix: []uint8{255}}
		b, c := a, a
		b.Mask, c.Mask = m, m
		assert.NotPanics(t, func() { assert.False(t, b.Equal(c)) })
	})
}

// sliceMask is an image whose dynamic type is not comparable.
type sliceMask struct{ pix []uint8 }

func (m sliceMask) ColorModel() color.Model { return color.AlphaModel }
func (m sliceMask) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (m sliceMask) At(int, int) color.Color { return color.Alpha{A: m.pix[0]} }

func TestRectFromRatios(t *testing.T) {
	bounds := Size{Width: 200, Height: 100}
	r := RectFromRatios(bounds, Point{X: 0.5, Y: 0.5}, Point{X: 0.5, Y: 0.5})
	assert.Equal(t, Rect{X: 50, Y: 25, Width: 100, Height: 50}, r)
	assert.Equal(t, image.Rect(50, 25, 150, 75), r.Pixels())
}
