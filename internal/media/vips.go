//go:build vips

package media

import (
	"fmt"
	"math"

	"github.com/h2non/bimg"
)

// Compile-time check that VipsCodec implements Codec.
var _ Codec = (*VipsCodec)(nil)

// VipsCodec recompresses through libvips. Encoding and decoding stay with
// ImageCodec since the pipeline works on image.Image values; transparent
// images below full quality also take the ImageCodec palette path, which
// keeps the clip shape.
type VipsCodec struct {
	*ImageCodec
}

// NewVipsCodec creates a VipsCodec.
func NewVipsCodec() *VipsCodec {
	return &VipsCodec{ImageCodec: NewImageCodec()}
}

// NewCodec returns the codec the service exports with.
func NewCodec() Codec {
	return NewVipsCodec()
}

// Compress re-encodes data at the given quality: JPEG for opaque input,
// PNG at maximum compression otherwise.
func (c *VipsCodec) Compress(data []byte, quality float64) ([]byte, error) {
	if quality <= 0 || math.IsNaN(quality) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidQuality, quality)
	}
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	img := bimg.NewImage(data)
	meta, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("read image metadata: %w", err)
	}

	opts := bimg.Options{StripMetadata: true}
	switch {
	case meta.Alpha && quality < 1:
		return c.ImageCodec.Compress(data, quality)
	case meta.Alpha:
		opts.Type = bimg.PNG
		opts.Compression = 9
	default:
		opts.Type = bimg.JPEG
		opts.Quality = jpegQuality(quality)
	}

	out, err := img.Process(opts)
	if err != nil {
		return nil, fmt.Errorf("vips %s: %w", bimg.ImageTypeName(opts.Type), err)
	}
	return out, nil
}
