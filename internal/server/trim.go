package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/trim"
)

// defaultVideoExt is used when the uploaded container cannot be sniffed.
const defaultVideoExt = ".mp4"

var errTrimLimits = errors.New("minimum duration exceeds maximum duration")

// ResolveTrim handles POST /trim/resolve requests.
func (h *Handlers) ResolveTrim(w http.ResponseWriter, r *http.Request) {
	var req ResolveTrimRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, ok := h.mapper(w, seconds(req.DurationSec), req.ViewWidth, req.Config, req.State)
	if !ok {
		return
	}

	resp := ResolveTrimResponse{
		StartSec:    m.StartTime().Seconds(),
		EndSec:      m.EndTime().Seconds(),
		DurationSec: m.Duration().Seconds(),
		StartLabel:  trim.FormatTime(m.StartTime()),
		EndLabel:    trim.FormatTime(m.EndTime()),
		State:       trimState(m.Info()),
	}
	if req.TargetViewWidth > 0 {
		m.Resize(req.TargetViewWidth)
		target := trimState(m.Info())
		resp.Target = &target
	}
	writeJSON(w, http.StatusOK, resp)
}

// TrimVideo handles POST /trim/video requests.
func (h *Handlers) TrimVideo(w http.ResponseWriter, r *http.Request) {
	var req TrimVideoRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	data, err := base64.StdEncoding.DecodeString(req.VideoBase64)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "video is not valid base64", "INVALID_MEDIA")
		return
	}

	src, err := h.store.SaveTemp(ctx, "trim_src", bytes.NewReader(data))
	if err != nil {
		h.logger.Error("failed to save video", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to save video", "STORAGE_FAILED")
		return
	}
	cleanup := []string{src}
	defer func() {
		if err := h.store.CleanupTemp(ctx, cleanup); err != nil {
			h.logger.Warn("failed to clean up trim files", slog.String("error", err.Error()))
		}
	}()

	duration, err := h.video.ProbeDuration(ctx, src)
	if err != nil {
		h.logger.Warn("failed to probe video", slog.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, "failed to read video duration", "PROBE_FAILED")
		return
	}

	m, ok := h.mapper(w, duration, req.ViewWidth, req.Config, &req.State)
	if !ok {
		return
	}
	start, end := m.StartTime(), m.EndTime()

	ct := media.DetectContentType(data)
	ext := ct.Extension
	if ext == "" {
		ext = defaultVideoExt
	}
	dst, err := h.store.TempPath(ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to allocate output", "STORAGE_FAILED")
		return
	}
	cleanup = append(cleanup, dst)

	if err := h.video.TrimVideo(ctx, src, dst, start, end); err != nil {
		h.logger.Error("failed to trim video",
			slog.Duration("start", start),
			slog.Duration("end", end),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to trim video", "TRIM_FAILED")
		return
	}

	out, err := h.readFile(r, dst)
	if err != nil {
		h.logger.Error("failed to read trimmed video", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read trimmed video", "STORAGE_FAILED")
		return
	}

	resp := TrimVideoResponse{StartSec: start.Seconds(), EndSec: end.Seconds()}
	if req.PushToS3 {
		url, err := h.store.UploadToS3(ctx, "trims/"+filepath.Base(dst), ct.MIME, bytes.NewReader(out))
		if err != nil {
			h.logger.Error("failed to upload trimmed video", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "failed to upload trimmed video", "UPLOAD_FAILED")
			return
		}
		resp.VideoURL = url
	} else {
		resp.VideoBase64 = base64.StdEncoding.EncodeToString(out)
	}

	h.logger.Info("video trimmed",
		slog.Duration("asset", duration),
		slog.Duration("start", start),
		slog.Duration("end", end),
	)
	writeJSON(w, http.StatusOK, resp)
}

// mapper lays out a trim control for asset and restores state onto it,
// answering 400 when the limits or the state are invalid.
func (h *Handlers) mapper(w http.ResponseWriter, asset time.Duration, viewWidth float64, dto *TrimConfigDTO, state *TrimStateDTO) (*trim.Mapper, bool) {
	cfg := trimConfig(h.trim, dto)
	if cfg.MaximumDuration > 0 && cfg.MinimumDuration > cfg.MaximumDuration {
		writeError(w, http.StatusBadRequest, errTrimLimits.Error(), "VALIDATION_ERROR")
		return nil, false
	}

	m := trim.New(asset, viewWidth, cfg)
	if state != nil {
		if err := m.Restore(trimInfo(*state)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_TRIM_STATE")
			return nil, false
		}
	}
	return m, true
}

func (h *Handlers) readFile(r *http.Request, path string) ([]byte, error) {
	rc, err := h.store.LoadTemp(r.Context(), path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
