// Package compress picks encoding qualities for exported images.
//
// Still images are recompressed so the absolute output size stays bounded:
// the larger the lossless encoding, the harder it is compressed. Animation
// frames use a relative ratio clamped per size band.
package compress

// ThumbnailQuality is the fixed quality of preview thumbnails.
const ThumbnailQuality = 0.3

// Still image size bands and their target byte budgets.
const (
	bandHuge   = 30_000_000
	bandLarge  = 15_000_000
	bandMedium = 10_000_000
	bandSmall  = 3_000_000

	targetHuge   = 25_000_000
	targetLarge  = 10_000_000
	targetMedium = 6_000_000
	targetSmall  = 3_000_000
)

// Animation frame size bands. These are a fixed policy tuned for 8-bit RGBA
// frames.
const (
	frameBandLarge  = 800_000
	frameBandMedium = 500_000
	frameBandSmall  = 200_000

	frameFloorLarge  = 0.3
	frameFloorMedium = 0.5
	frameFloorSmall  = 0.7
	frameDefault     = 0.9
)

// Quality returns the target quality for an image whose uncompressed
// encoding is byteCount bytes. The second result is false when the image is
// small enough to keep its source quality.
func Quality(byteCount int) (float64, bool) {
	n := float64(byteCount)
	switch {
	case byteCount > bandHuge:
		return targetHuge / n, true
	case byteCount > bandLarge:
		return targetLarge / n, true
	case byteCount > bandMedium:
		return targetMedium / n, true
	case byteCount > bandSmall:
		return targetSmall / n, true
	default:
		return 0, false
	}
}

// FrameQuality returns the recompression quality for a cropped animation
// frame. The ratio of the raw frame size to the cropped size is kept unless
// it falls under the floor of the cropped frame's size band; small frames
// always use a fixed high quality.
func FrameQuality(rawBytes, croppedBytes int) float64 {
	if croppedBytes <= 0 {
		return frameDefault
	}
	ratio := float64(rawBytes) / float64(croppedBytes)
	switch {
	case croppedBytes > frameBandLarge:
		return max(ratio, frameFloorLarge)
	case croppedBytes > frameBandMedium:
		return max(ratio, frameFloorMedium)
	case croppedBytes > frameBandSmall:
		return max(ratio, frameFloorSmall)
	default:
		return frameDefault
	}
}
