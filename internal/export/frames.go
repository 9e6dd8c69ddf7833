package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/editkit/internal/adjust"
	"github.com/maauso/editkit/internal/compress"
	"github.com/maauso/editkit/internal/crop"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/overlay"
)

// FrameProcessor applies one overlay and one crop to every frame of an
// animation, in parallel.
type FrameProcessor struct {
	codec   media.Codec
	workers int
	logger  *slog.Logger
}

// NewFrameProcessor creates a FrameProcessor running at most workers frames
// at a time. A non-positive workers uses the number of CPUs.
func NewFrameProcessor(codec media.Codec, workers int, logger *slog.Logger) *FrameProcessor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameProcessor{codec: codec, workers: workers, logger: logger}
}

// Process merges ov onto each frame, crops it and recompresses it. The
// output keeps input order and delays.
//
// A frame whose crop fails is dropped. A frame whose recompression fails
// keeps its cropped, uncompressed image. ErrBlankFrame is returned when no
// frame survives. When ctx is cancelled, frames that have not started are
// skipped and the context error is returned.
func (p *FrameProcessor) Process(
	ctx context.Context,
	frames []media.Frame,
	ov image.Image,
	f adjust.Factor,
	rect adjust.Rect,
) ([]media.Frame, error) {
	if len(frames) == 0 {
		return nil, ErrBlankFrame
	}

	results := make([]*media.Frame, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, frame := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, ok := p.processFrame(i, frame, ov, f, rect)
			if ok {
				results[i] = &out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process frames: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process frames: %w", err)
	}

	out := make([]media.Frame, 0, len(frames))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, ErrBlankFrame
	}
	return out, nil
}

func (p *FrameProcessor) processFrame(
	index int,
	frame media.Frame,
	ov image.Image,
	f adjust.Factor,
	rect adjust.Rect,
) (media.Frame, bool) {
	img := frame.Image
	if ov != nil {
		img = overlay.Merge(img, ov, image.Point{})
	}

	cropped, err := crop.Apply(img, rect, f)
	if err != nil {
		p.logger.Warn("dropping frame",
			slog.Int("index", index),
			slog.String("error", err.Error()),
		)
		return media.Frame{}, false
	}

	compressed, err := p.recompress(frame.Image, cropped)
	if err != nil {
		p.logger.Debug("keeping uncompressed frame",
			slog.Int("index", index),
			slog.String("error", err.Error()),
		)
		return media.Frame{Image: cropped, Delay: frame.Delay}, true
	}
	return media.Frame{Image: compressed, Delay: frame.Delay}, true
}

// recompress encodes cropped at a quality derived from how much smaller it
// is than the source frame, then decodes the result.
func (p *FrameProcessor) recompress(source, cropped image.Image) (image.Image, error) {
	raw, err := p.codec.Encode(source)
	if err != nil {
		return nil, err
	}
	data, err := p.codec.Encode(cropped)
	if err != nil {
		return nil, err
	}

	quality := compress.FrameQuality(len(raw), len(data))
	out, err := p.codec.Compress(data, min(quality, 1))
	if err != nil {
		return nil, err
	}
	return p.codec.Decode(out)
}
