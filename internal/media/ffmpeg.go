package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Static errors for video operations.
var (
	// ErrInvalidRange is returned when a trim range is empty or negative.
	ErrInvalidRange = errors.New("invalid range: end must be after start")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// Compile-time check that FFmpegProcessor implements VideoProcessor.
var _ VideoProcessor = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements VideoProcessor using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" found via PATH.
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// TrimVideo writes the [start, end) range of src to dst.
func (p *FFmpegProcessor) TrimVideo(ctx context.Context, src, dst string, start, end time.Duration) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: start=%s, end=%s", ErrInvalidRange, start, end)
	}

	// Try fast copy first (no re-encoding)
	err := p.runFFmpeg(ctx, trimArgs(src, dst, start, end, []string{"-c", "copy"}))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	// Fast copy failed, fall back to re-encoding
	return p.runFFmpeg(ctx, trimArgs(src, dst, start, end, []string{
		"-c:v", "libx264", // Video codec
		"-preset", "fast", // Encoding speed preset
		"-crf", "23", // Quality (lower = better, 23 is default)
		"-c:a", "aac", // Audio codec
		"-b:a", "128k", // Audio bitrate
	}))
}

// trimArgs builds the ffmpeg arguments for cutting a range out of src.
func trimArgs(src, dst string, start, end time.Duration, codec []string) []string {
	args := []string{
		"-y", // Overwrite output file without asking
		"-ss", formatSeconds(start), // Seek to range start
		"-i", src, // Input file
		"-t", formatSeconds(end - start), // Range length
	}
	args = append(args, codec...)
	return append(args, dst)
}

// formatSeconds renders d with millisecond precision as ffmpeg expects.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// ProbeDuration returns the duration of a media file using ffprobe.
func (p *FFmpegProcessor) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseDuration(stdout.String())
}

// parseDuration parses ffprobe's seconds output.
func parseDuration(out string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
