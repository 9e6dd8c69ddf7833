package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/editkit/internal/job"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/storage"
	"github.com/maauso/editkit/internal/trim"
)

// maxBodyBytes bounds request bodies; media travels base64 encoded.
const maxBodyBytes = 64 << 20

// ExportService runs and tracks export jobs. It is implemented by
// job.ExportService.
type ExportService interface {
	Submit(ctx context.Context, in job.ExportInput) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	OpenOutput(ctx context.Context, j *job.Job) (io.ReadCloser, error)
	DeleteOutput(ctx context.Context, id string) error
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	exports   ExportService
	video     media.VideoProcessor
	store     storage.Storage
	codec     media.Codec
	trim      trim.Config
	validator *validator.Validate
	logger    *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithTrimConfig sets the trim control limits requests start from.
func WithTrimConfig(cfg trim.Config) HandlerOption {
	return func(h *Handlers) {
		h.trim = cfg
	}
}

// WithCodec sets the codec used to decode request images.
func WithCodec(c media.Codec) HandlerOption {
	return func(h *Handlers) {
		h.codec = c
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(exports ExportService, video media.VideoProcessor, store storage.Storage, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		exports:   exports,
		video:     video,
		store:     store,
		codec:     media.NewImageCodec(),
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateExport handles POST /exports requests.
func (h *Handlers) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req CreateExportRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := newSession(req, h.codec)
	if err != nil {
		h.logger.Warn("failed to build edit session", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MEDIA")
		return
	}

	created, err := h.exports.Submit(r.Context(), job.ExportInput{
		SessionID: req.SessionID,
		Request:   session.Request(nil),
		PushToS3:  req.PushToS3,
	})
	if err != nil {
		h.logger.Error("failed to submit export", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create export", "EXPORT_CREATION_FAILED")
		return
	}

	if created.Status == job.StatusSkipped {
		writeJSON(w, http.StatusOK, CreateExportResponse{Status: string(job.StatusSkipped)})
		return
	}

	h.logger.Info("export accepted",
		slog.String("job_id", created.ID),
		slog.String("session_id", req.SessionID),
	)
	writeJSON(w, http.StatusAccepted, CreateExportResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// GetExport handles GET /exports/{id} requests.
func (h *Handlers) GetExport(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}

	resp := ExportResponse{
		ID:     found.ID,
		Status: string(found.Status),
		Error:  found.Error,
	}

	if found.Status == job.StatusCompleted {
		resp.Kind = found.Output.Kind
		resp.Size = found.Output.Size
		if found.Output.URL != "" {
			resp.OutputURL = found.Output.URL
		} else if found.Output.Path != "" {
			if data, err := h.readOutput(r.Context(), found); err != nil {
				// The job record stays readable without its file.
				h.logger.Error("failed to read export output",
					slog.String("job_id", found.ID),
					slog.String("path", found.Output.Path),
					slog.String("error", err.Error()),
				)
			} else {
				resp.OutputBase64 = base64.StdEncoding.EncodeToString(data)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteExportOutput handles DELETE /exports/{id}/output requests.
func (h *Handlers) DeleteExportOutput(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	if err := h.exports.DeleteOutput(r.Context(), found.ID); err != nil {
		h.logger.Error("failed to delete export output",
			slog.String("job_id", found.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete output", "OUTPUT_DELETE_FAILED")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "export ID is required", "MISSING_EXPORT_ID")
		return nil, false
	}

	found, err := h.exports.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "export not found", "EXPORT_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get export",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get export", "EXPORT_FETCH_FAILED")
		return nil, false
	}
	return found, true
}

func (h *Handlers) readOutput(ctx context.Context, j *job.Job) ([]byte, error) {
	rc, err := h.exports.OpenOutput(ctx, j)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// decode reads and validates a JSON body into dst, answering 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
