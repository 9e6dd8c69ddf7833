package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/editkit/internal/adjust"
	"github.com/maauso/editkit/internal/editor"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/overlay"
	"github.com/maauso/editkit/internal/trim"
)

// defaultMosaicCell is the pixelation block size of mosaic brushes.
const defaultMosaicCell = 16

var errInvalidColor = errors.New("invalid color")

// newSession decodes the request image and replays its edits onto an
// editor session.
func newSession(req CreateExportRequest, codec media.Codec) (*editor.Session, error) {
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	var s *editor.Session
	if media.IsAnimated(data) {
		frames, err := media.DecodeFrames(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		s = editor.NewAnimatedSession(frames)
	} else {
		img, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		s = editor.NewSession(img)
	}

	// Rotation resets the crop, so it goes first.
	if req.Angle != 0 {
		s.Rotate(req.Angle)
	}
	if req.Crop != nil {
		s.SetCrop(adjust.Rect{X: req.Crop.X, Y: req.Crop.Y, Width: req.Crop.Width, Height: req.Crop.Height})
	}
	if req.MirrorHorizontal {
		s.Mirror(false)
	}
	if req.MirrorVertical {
		s.Mirror(true)
	}
	s.SetRoundMask(req.RoundMask)
	s.SetScales(req.ImageScale, req.ExportScale)

	if req.MaskBase64 != "" {
		mask, err := decodeImage(req.MaskBase64, codec)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		s.SetMask(mask)
	}

	for i, st := range req.Strokes {
		c, err := parseHexColor(st.Color)
		if err != nil {
			return nil, fmt.Errorf("stroke %d: %w", i, err)
		}
		s.Layer(overlay.KindDraw).Add(overlay.Stroke{Points: points(st.Points), Color: c, Width: st.Width})
	}

	for _, m := range req.Mosaics {
		cell := m.Cell
		if cell == 0 {
			cell = defaultMosaicCell
		}
		s.Layer(overlay.KindMosaic).Add(overlay.Mosaic{
			Points: points(m.Points),
			Width:  m.Width,
			Source: s.MosaicSource(cell),
		})
	}

	for i, st := range req.Stickers {
		img, err := decodeImage(st.ImageBase64, codec)
		if err != nil {
			return nil, fmt.Errorf("sticker %d: %w", i, err)
		}
		s.AddSticker(overlay.Sticker{
			Image:  img,
			Center: adjust.Point{X: st.Center.X, Y: st.Center.Y},
			Scale:  st.Scale,
			Angle:  st.Angle,
		})
	}
	return s, nil
}

func decodeImage(b64 string, codec media.Codec) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}

func points(in []PointDTO) []adjust.Point {
	out := make([]adjust.Point, len(in))
	for i, p := range in {
		out[i] = adjust.Point{X: p.X, Y: p.Y}
	}
	return out
}

// parseHexColor parses #rgb, #rgba, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.Color, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("%w: %q", errInvalidColor, s)
	}
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("%w: %q", errInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// trimConfig applies the request overrides to the server limits.
func trimConfig(base trim.Config, dto *TrimConfigDTO) trim.Config {
	if dto == nil {
		return base
	}
	if dto.ControlWidth != nil {
		base.ControlWidth = *dto.ControlWidth
	}
	if dto.MinimumDuration != nil {
		base.MinimumDuration = seconds(*dto.MinimumDuration)
	}
	if dto.MaximumDuration != nil {
		base.MaximumDuration = seconds(*dto.MaximumDuration)
	}
	return base
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}

func trimInfo(dto TrimStateDTO) trim.Info {
	return trim.Info{
		OffsetRatio:    dto.OffsetRatio,
		TrimStartRatio: dto.TrimStartRatio,
		TrimWidthRatio: dto.TrimWidthRatio,
	}
}

func trimState(info trim.Info) TrimStateDTO {
	return TrimStateDTO{
		OffsetRatio:    info.OffsetRatio,
		TrimStartRatio: info.TrimStartRatio,
		TrimWidthRatio: info.TrimWidthRatio,
	}
}
