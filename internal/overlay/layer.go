// Package overlay holds the editable surfaces drawn above a base image and
// flattens them into a single overlay raster at export time.
//
// A Layer records items (strokes, mosaic smears, stickers) the way a drawing
// recorder records commands; nothing is rendered until Rasterize plays them
// back onto a fresh canvas. Consumption is an explicit two-step protocol:
// Rasterize returns the image, Reset drops what was rasterized.
package overlay

import (
	"image"
	"sync"

	"github.com/fogleman/gg"
)

// Kind identifies the surface a layer belongs to.
type Kind int

const (
	// KindDraw is the freehand drawing surface.
	KindDraw Kind = iota
	// KindMosaic is the mosaic smear surface.
	KindMosaic
	// KindSticker is the sticker surface.
	KindSticker
)

// String returns the surface name.
func (k Kind) String() string {
	switch k {
	case KindDraw:
		return "draw"
	case KindMosaic:
		return "mosaic"
	case KindSticker:
		return "sticker"
	default:
		return "unknown"
	}
}

// Item is one recorded element of a layer.
type Item interface {
	// Render draws the item onto dc, in layer pixel coordinates.
	Render(dc *gg.Context)
}

// Layer is an ordered list of items over a surface of fixed pixel size.
// It is safe for concurrent use; rasterization holds the layer lock so no
// item can land in the middle of it.
type Layer struct {
	mu    sync.Mutex
	kind  Kind
	size  image.Point
	items []Item
	// rasterized is the number of leading items covered by the last Rasterize.
	rasterized int
}

// NewLayer creates an empty layer of the given kind and surface size.
func NewLayer(kind Kind, size image.Point) *Layer {
	return &Layer{kind: kind, size: size}
}

// Kind returns the surface kind.
func (l *Layer) Kind() Kind {
	return l.kind
}

// Size returns the surface size in pixels.
func (l *Layer) Size() image.Point {
	return l.size
}

// Add appends items in drawing order.
func (l *Layer) Add(items ...Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, items...)
}

// Len returns the number of pending items.
func (l *Layer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Undo removes the most recent item. It returns false when the layer is empty.
func (l *Layer) Undo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return false
	}
	l.items = l.items[:len(l.items)-1]
	l.rasterized = min(l.rasterized, len(l.items))
	return true
}

// UndoAll removes every item.
func (l *Layer) UndoAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.rasterized = 0
}

// Rasterize renders all pending items onto a transparent canvas of the
// surface size. It returns nil when the layer has no items or no area.
func (l *Layer) Rasterize() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 || l.size.X <= 0 || l.size.Y <= 0 {
		return nil
	}

	dc := gg.NewContext(l.size.X, l.size.Y)
	for _, item := range l.items {
		dc.Push()
		item.Render(dc)
		dc.Pop()
	}
	l.rasterized = len(l.items)
	return dc.Image()
}

// Reset drops the items covered by the last Rasterize. Items added after
// that call are kept for the next export.
func (l *Layer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := make([]Item, len(l.items)-l.rasterized)
	copy(remaining, l.items[l.rasterized:])
	l.items = remaining
	l.rasterized = 0
}
