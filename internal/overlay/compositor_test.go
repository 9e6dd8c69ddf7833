package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/editkit/internal/adjust"
)

func TestComposite_NoLayers(t *testing.T) {
	assert.Nil(t, Composite(nil, image.Pt(10, 10)))
	assert.Nil(t, Composite([]*Layer{nil, NewLayer(KindDraw, image.Pt(10, 10))}, image.Pt(10, 10)))
}

func TestComposite_ScalesToTargetAndConsumesLayers(t *testing.T) {
	draw := NewLayer(KindDraw, image.Pt(20, 20))
	draw.Add(redStroke())
	stickers := NewLayer(KindSticker, image.Pt(20, 20))

	out := Composite([]*Layer{draw, nil, stickers}, image.Pt(40, 40))
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 40, 40), out.Bounds())
	assert.Equal(t, uint32(255), alphaAt(out, 20, 20), "stroke center scaled by two")

	assert.Zero(t, draw.Len(), "rasterized layer is reset")
	assert.Nil(t, Composite([]*Layer{draw}, image.Pt(40, 40)), "second export does not reapply the overlay")
}

func TestComposite_LayerOrder(t *testing.T) {
	below := NewLayer(KindDraw, image.Pt(10, 10))
	below.Add(Stroke{Points: []adjust.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}, Color: color.RGBA{R: 255, A: 255}, Width: 10})
	above := NewLayer(KindSticker, image.Pt(10, 10))
	above.Add(Stroke{Points: []adjust.Point{{X: 0, Y: 5}, {X: 10, Y: 5}}, Color: color.RGBA{B: 255, A: 255}, Width: 10})

	out := Composite([]*Layer{below, above}, image.Pt(10, 10))
	require.NotNil(t, out)
	r, _, b, _ := out.At(5, 5).RGBA()
	assert.Zero(t, r>>8)
	assert.Equal(t, uint32(255), b>>8)
}

func TestMerge(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(base.Pix); i += 4 {
		base.Pix[i+1] = 255
		base.Pix[i+3] = 255
	}
	ov := image.NewRGBA(image.Rect(0, 0, 10, 10))
	ov.Set(0, 0, color.RGBA{R: 255, A: 255})

	out := Merge(base, ov, image.Point{})
	assert.Equal(t, base.Bounds(), out.Bounds())

	r, g, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Zero(t, g>>8)

	_, g, _, _ = out.At(5, 5).RGBA()
	assert.Equal(t, uint32(255), g>>8)

	scaled := Merge(base, nil, image.Pt(20, 20))
	assert.Equal(t, image.Rect(0, 0, 20, 20), scaled.Bounds())
}
