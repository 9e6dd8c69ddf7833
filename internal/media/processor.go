// Package media provides image and video processing capabilities.
package media

import (
	"context"
	"time"
)

// VideoProcessor defines the video operations the trim workflow depends on.
// Implementations should use ffmpeg or similar tools for media manipulation.
type VideoProcessor interface {
	// ProbeDuration returns the playback duration of a media file.
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)

	// TrimVideo writes the [start, end) range of src to dst. It first
	// attempts a stream copy and falls back to re-encoding with libx264/aac
	// when the copy fails.
	TrimVideo(ctx context.Context, src, dst string, start, end time.Duration) error
}
