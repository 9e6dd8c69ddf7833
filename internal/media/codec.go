package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	// Register the GIF decoder for image.Decode.
	_ "image/gif"

	"github.com/gabriel-vasile/mimetype"
)

// Static errors for image coding.
var (
	// ErrNilImage is returned when an encode is attempted without an image.
	ErrNilImage = errors.New("image is nil")
	// ErrEmptyData is returned when there are no bytes to decode.
	ErrEmptyData = errors.New("image data is empty")
	// ErrInvalidQuality is returned when a quality is outside (0, 1].
	ErrInvalidQuality = errors.New("invalid quality: must be in (0, 1]")
)

// Codec encodes, recompresses and decodes still images.
type Codec interface {
	// Encode produces a lossless encoding of img. Its length is the
	// uncompressed size estimate the compression advisor works from.
	Encode(img image.Image) ([]byte, error)

	// Compress re-encodes data at quality in (0, 1]. Qualities above 1 are
	// treated as 1.
	Compress(data []byte, quality float64) ([]byte, error)

	// Decode turns encoded bytes back into an image.
	Decode(data []byte) (image.Image, error)
}

// Compile-time check that ImageCodec implements Codec.
var _ Codec = (*ImageCodec)(nil)

// ImageCodec implements Codec with PNG for lossless output and JPEG for
// quality-driven recompression. Images with transparency stay PNG when
// recompressed since JPEG would flatten a round or masked crop; below full
// quality they are reduced to the paletted frame colours instead.
type ImageCodec struct {
	png png.Encoder
}

// NewImageCodec creates an ImageCodec.
func NewImageCodec() *ImageCodec {
	return &ImageCodec{png: png.Encoder{CompressionLevel: png.DefaultCompression}}
}

// Encode encodes img as PNG.
func (c *ImageCodec) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	var buf bytes.Buffer
	if err := c.png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Compress decodes data and re-encodes it at the given quality.
func (c *ImageCodec) Compress(data []byte, quality float64) ([]byte, error) {
	if quality <= 0 || math.IsNaN(quality) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidQuality, quality)
	}
	img, err := c.Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if !isOpaque(img) {
		if quality < 1 {
			img = quantize(img)
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), nil
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes PNG, JPEG or GIF data. For GIF only the first frame is
// returned; use DecodeFrames for animations.
func (c *ImageCodec) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// jpegQuality maps a (0, 1] quality onto the JPEG 1..100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// ContentType describes encoded bytes as sniffed from their signature.
type ContentType struct {
	MIME      string
	Extension string
}

// IsGIF reports whether the bytes are a GIF container.
func (t ContentType) IsGIF() bool {
	return t.MIME == "image/gif"
}

// DetectContentType sniffs the MIME type and file extension of data.
func DetectContentType(data []byte) ContentType {
	m := mimetype.Detect(data)
	return ContentType{MIME: m.String(), Extension: m.Extension()}
}
