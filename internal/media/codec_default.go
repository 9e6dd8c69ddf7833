//go:build !vips

package media

// NewCodec returns the codec the service exports with. Builds tagged vips
// recompress through libvips instead.
func NewCodec() Codec {
	return NewImageCodec()
}
