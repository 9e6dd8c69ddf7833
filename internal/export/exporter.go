// Package export renders the pending edits of an image into a file.
//
// An export composites the overlay layers onto the base image, applies the
// crop transform, recompresses the result to keep its size bounded and
// writes it to a destination. Animated images run the same steps per frame
// and are written as GIF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	xdraw "golang.org/x/image/draw"

	"github.com/maauso/editkit/internal/adjust"
	"github.com/maauso/editkit/internal/compress"
	"github.com/maauso/editkit/internal/crop"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/overlay"
)

// Request is one export.
type Request struct {
	// Image is the still base image. It is ignored when Frames is non-nil.
	Image image.Image
	// Frames holds the frames of an animated image. A non-nil empty slice
	// is an animation without frames.
	Frames []media.Frame

	// ImageScale is the pixel density Image was rendered at and ExportScale
	// the density of the output. When both are set, differ and an overlay
	// exists, the base is re-rendered at ExportScale before merging.
	ImageScale  float64
	ExportScale float64

	// CropRect is the crop in base image pixels. When empty the crop ratios
	// of Factor are used.
	CropRect adjust.Rect
	Factor   adjust.Factor
	// Layers are composited in order. Layers that produce a raster are reset.
	Layers []*overlay.Layer
	// Destination is optional; a temp destination is allocated otherwise.
	Destination *Destination
}

func (r Request) animated() bool {
	return r.Frames != nil
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCodec sets the image codec.
func WithCodec(c media.Codec) Option {
	return func(e *Exporter) {
		e.codec = c
	}
}

// WithDispatcher sets where asynchronous completions are delivered.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Exporter) {
		e.dispatcher = d
	}
}

// WithFrameWorkers sets the number of frames processed at once.
func WithFrameWorkers(n int) Option {
	return func(e *Exporter) {
		e.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// Exporter runs exports. It is safe for concurrent use; the overlay phase of
// each export runs under a lock so a later export never reads layers that an
// earlier one is still consuming.
type Exporter struct {
	store      FileStore
	codec      media.Codec
	dispatcher Dispatcher
	frames     *FrameProcessor
	workers    int
	logger     *slog.Logger

	startMu sync.Mutex
}

// NewExporter creates an Exporter writing through store.
func NewExporter(store FileStore, opts ...Option) *Exporter {
	e := &Exporter{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.codec == nil {
		e.codec = media.NewImageCodec()
	}
	if e.dispatcher == nil {
		e.dispatcher = NewSerialQueue(16)
	}
	e.frames = NewFrameProcessor(e.codec, e.workers, e.logger)
	return e
}

// plan is a request after its overlay phase.
type plan struct {
	req     Request
	base    image.Image
	overlay image.Image
	rect    adjust.Rect
	started time.Time
}

// Export runs req synchronously.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	p, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, p)
}

// ExportAsync starts req and delivers its outcome to done through the
// dispatcher. ErrNothingToProcess is returned directly and done is never
// called for it. When ctx is cancelled before completion, done is not called.
//
// The overlay phase runs before ExportAsync returns, so consecutive calls
// consume layers in call order.
func (e *Exporter) ExportAsync(ctx context.Context, req Request, done func(*Result, error)) error {
	p, err := e.prepare(req)
	if errors.Is(err, ErrNothingToProcess) {
		return err
	}

	go func() {
		var res *Result
		if err == nil {
			res, err = e.run(ctx, p)
		}
		if ctx.Err() != nil {
			e.logger.Debug("export cancelled, dropping completion")
			return
		}
		e.dispatcher.Dispatch(func() {
			done(res, err)
		})
	}()
	return nil
}

// prepare validates req and consumes its overlay layers.
func (e *Exporter) prepare(req Request) (*plan, error) {
	if !req.Factor.AllowsExport() {
		return nil, ErrNothingToProcess
	}

	if req.animated() {
		if len(req.Frames) == 0 {
			return nil, ErrBlankFrame
		}
		if req.Destination != nil && req.Destination.Kind != "" && req.Destination.Kind != KindGIF {
			return nil, fmt.Errorf("%w: %s destination for an animated image", ErrTypeMismatch, req.Destination.Kind)
		}
		first := req.Frames[0].Image
		if first == nil {
			return nil, ErrInputEmpty
		}

		e.startMu.Lock()
		ov := overlay.Composite(req.Layers, first.Bounds().Size())
		e.startMu.Unlock()

		return &plan{req: req, overlay: ov, rect: frameRect(req, first), started: time.Now()}, nil
	}

	if req.Image == nil || req.Image.Bounds().Empty() {
		return nil, ErrInputEmpty
	}

	scale := 1.0
	if req.ImageScale > 0 && req.ExportScale > 0 && req.ImageScale != req.ExportScale {
		scale = req.ExportScale / req.ImageScale
	}
	size := req.Image.Bounds().Size()
	target := image.Pt(
		max(1, int(math.Round(float64(size.X)*scale))),
		max(1, int(math.Round(float64(size.Y)*scale))),
	)

	e.startMu.Lock()
	ov := overlay.Composite(req.Layers, target)
	e.startMu.Unlock()

	p := &plan{req: req, base: req.Image, overlay: ov, rect: req.CropRect, started: time.Now()}
	if ov != nil && scale != 1 {
		p.base = rescale(req.Image, target)
		p.rect = req.CropRect.Scale(scale)
	}
	if p.rect.IsEmpty() {
		p.rect = crop.RectFor(p.base, req.Factor)
	}
	return p, nil
}

func frameRect(req Request, first image.Image) adjust.Rect {
	if !req.CropRect.IsEmpty() {
		return req.CropRect
	}
	return crop.RectFor(first, req.Factor)
}

func (e *Exporter) run(ctx context.Context, p *plan) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.req.animated() {
		return e.runAnimated(ctx, p)
	}
	return e.runStill(ctx, p)
}

func (e *Exporter) runStill(ctx context.Context, p *plan) (*Result, error) {
	img := p.base
	if p.overlay != nil {
		img = overlay.Merge(img, p.overlay, img.Bounds().Size())
	}

	cropped, err := crop.Apply(img, p.rect, p.req.Factor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCropFailed, err)
	}

	raw, err := e.codec.Encode(cropped)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAcquisitionFailed, err)
	}

	data := raw
	if quality, ok := compress.Quality(len(raw)); ok {
		data, err = e.codec.Compress(raw, quality)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompressionFailed, err)
		}
	}

	dst, err := e.write(ctx, p.req.Destination, data, KindNormal)
	if err != nil {
		return nil, err
	}

	thumbData, err := e.codec.Compress(data, compress.ThumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %w", ErrCompressionFailed, err)
	}
	thumb, err := e.codec.Decode(thumbData)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %w", ErrCompressionFailed, err)
	}

	e.logger.Info("image exported",
		slog.String("path", dst.Path),
		slog.String("raw_size", humanize.Bytes(uint64(len(raw)))),
		slog.String("size", humanize.Bytes(uint64(len(data)))),
		slog.Duration("elapsed", time.Since(p.started)),
	)

	return &Result{
		Thumbnail:   thumb,
		Destination: dst,
		Kind:        KindNormal,
		Adjustment:  p.req.Factor,
		Size:        len(data),
	}, nil
}

func (e *Exporter) runAnimated(ctx context.Context, p *plan) (*Result, error) {
	frames, err := e.frames.Process(ctx, p.req.Frames, p.overlay, p.req.Factor, p.rect)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := media.EncodeFrames(&buf, frames); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAcquisitionFailed, err)
	}

	dst, err := e.write(ctx, p.req.Destination, buf.Bytes(), KindGIF)
	if err != nil {
		return nil, err
	}

	e.logger.Info("animation exported",
		slog.String("path", dst.Path),
		slog.Int("frames", len(frames)),
		slog.Int("dropped", len(p.req.Frames)-len(frames)),
		slog.String("size", humanize.Bytes(uint64(buf.Len()))),
		slog.Duration("elapsed", time.Since(p.started)),
	)

	return &Result{
		Thumbnail:   frames[0].Image,
		Destination: dst,
		Kind:        KindGIF,
		Adjustment:  p.req.Factor,
		Size:        buf.Len(),
	}, nil
}

// write stores data at dst, allocating a temp destination when dst is nil.
func (e *Exporter) write(ctx context.Context, dst *Destination, data []byte, kind ContentKind) (Destination, error) {
	var out Destination
	if dst != nil && dst.Path != "" {
		if dst.Kind != "" && dst.Kind != kind {
			return Destination{}, fmt.Errorf("%w: %s destination for %s content", ErrTypeMismatch, dst.Kind, kind)
		}
		out = Destination{Path: dst.Path, Kind: kind}
	} else {
		ext := media.DetectContentType(data).Extension
		path, err := e.store.TempPath(ext)
		if err != nil {
			return Destination{}, &WriteFileError{Err: err}
		}
		out = Destination{Path: path, Kind: kind}
	}

	if err := e.store.WriteFile(ctx, out.Path, data); err != nil {
		return Destination{}, &WriteFileError{Path: out.Path, Err: err}
	}
	return out, nil
}

func rescale(img image.Image, size image.Point) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
