// Package server provides the HTTP API of the export and trim pipeline.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// PointDTO is a position in image pixels.
type PointDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RectDTO is a rectangle in image pixels.
type RectDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// StrokeDTO is a freehand drawing stroke.
type StrokeDTO struct {
	Points []PointDTO `json:"points" validate:"required,min=1"`
	// Color is #rrggbb or #rrggbbaa.
	Color string  `json:"color" validate:"required,hexcolor"`
	Width float64 `json:"width" validate:"gt=0,lte=512"`
}

// MosaicDTO is a mosaic brush path.
type MosaicDTO struct {
	Points []PointDTO `json:"points" validate:"required,min=1"`
	Width  float64    `json:"width" validate:"gt=0,lte=512"`
	// Cell is the pixelation block size; zero uses the default.
	Cell int `json:"cell,omitempty" validate:"omitempty,min=2,max=256"`
}

// StickerDTO is an image placed over the base image.
type StickerDTO struct {
	ImageBase64 string   `json:"image_base64" validate:"required,base64"`
	Center      PointDTO `json:"center"`
	Scale       float64  `json:"scale,omitempty" validate:"omitempty,gt=0,lte=64"`
	Angle       float64  `json:"angle,omitempty"`
}

// CreateExportRequest is the HTTP request body for exporting an edited image.
type CreateExportRequest struct {
	// SessionID groups exports of one editor session. A newer export of the
	// same session cancels the older one.
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	// ImageBase64 is the base64-encoded PNG, JPEG or GIF source.
	ImageBase64 string `json:"image_base64" validate:"required,base64"`
	// Crop is the crop rectangle in the pixel space of the rotated image.
	Crop *RectDTO `json:"crop,omitempty"`
	// Angle is the clockwise rotation in degrees.
	Angle float64 `json:"angle,omitempty" validate:"gte=-360,lte=360"`
	// MirrorHorizontal and MirrorVertical flip the image.
	MirrorHorizontal bool `json:"mirror_horizontal,omitempty"`
	MirrorVertical   bool `json:"mirror_vertical,omitempty"`
	// RoundMask clips the output to an ellipse.
	RoundMask bool `json:"round_mask,omitempty"`
	// MaskBase64 is an image whose alpha clips the output.
	MaskBase64 string       `json:"mask_base64,omitempty" validate:"omitempty,base64"`
	Strokes    []StrokeDTO  `json:"strokes,omitempty" validate:"dive"`
	Mosaics    []MosaicDTO  `json:"mosaics,omitempty" validate:"dive"`
	Stickers   []StickerDTO `json:"stickers,omitempty" validate:"dive"`
	// ImageScale is the pixel density the client displayed the image at.
	ImageScale float64 `json:"image_scale,omitempty" validate:"omitempty,gt=0,lte=8"`
	// ExportScale is the pixel density of the export.
	ExportScale float64 `json:"export_scale,omitempty" validate:"omitempty,gt=0,lte=8"`
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateExportResponse is the HTTP response after submitting an export.
type CreateExportResponse struct {
	// ID is empty when the export was skipped.
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

// ExportResponse is the HTTP response for getting export details.
type ExportResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// Kind is "normal" or "gif" once completed.
	Kind  string `json:"kind,omitempty"`
	Size  int    `json:"size,omitempty"`
	Error string `json:"error,omitempty"`
	// OutputBase64 is the encoded output when it was not pushed to S3.
	OutputBase64 string `json:"output_base64,omitempty"`
	// OutputURL is the S3 URL when the output was pushed.
	OutputURL string `json:"output_url,omitempty"`
}

// TrimConfigDTO overrides the server's trim control limits.
type TrimConfigDTO struct {
	ControlWidth    *float64 `json:"control_width,omitempty" validate:"omitempty,gte=0"`
	MinimumDuration *float64 `json:"minimum_duration_sec,omitempty" validate:"omitempty,gte=0"`
	MaximumDuration *float64 `json:"maximum_duration_sec,omitempty" validate:"omitempty,gte=0"`
}

// TrimStateDTO is the persisted layout of a trim control.
type TrimStateDTO struct {
	OffsetRatio    float64 `json:"offset_ratio" validate:"gte=0,lte=1"`
	TrimStartRatio float64 `json:"trim_start_ratio" validate:"gte=0,lte=1"`
	TrimWidthRatio float64 `json:"trim_width_ratio" validate:"gte=0,lte=1"`
}

// ResolveTrimRequest asks for the time range a persisted trim state selects.
type ResolveTrimRequest struct {
	DurationSec float64        `json:"duration_sec" validate:"gt=0"`
	ViewWidth   float64        `json:"view_width" validate:"gt=0"`
	Config      *TrimConfigDTO `json:"config,omitempty"`
	State       *TrimStateDTO  `json:"state,omitempty"`
	// TargetViewWidth re-expresses the state for another view width.
	TargetViewWidth float64 `json:"target_view_width,omitempty" validate:"omitempty,gt=0"`
}

// ResolveTrimResponse is the time range of a trim state.
type ResolveTrimResponse struct {
	StartSec    float64       `json:"start_sec"`
	EndSec      float64       `json:"end_sec"`
	DurationSec float64       `json:"duration_sec"`
	StartLabel  string        `json:"start_label"`
	EndLabel    string        `json:"end_label"`
	State       TrimStateDTO  `json:"state"`
	Target      *TrimStateDTO `json:"target_state,omitempty"`
}

// TrimVideoRequest trims a video to the range a trim state selects.
type TrimVideoRequest struct {
	VideoBase64 string         `json:"video_base64" validate:"required,base64"`
	ViewWidth   float64        `json:"view_width" validate:"gt=0"`
	Config      *TrimConfigDTO `json:"config,omitempty"`
	State       TrimStateDTO   `json:"state"`
	PushToS3    bool           `json:"push_to_s3"`
}

// TrimVideoResponse carries the trimmed video.
type TrimVideoResponse struct {
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	VideoBase64 string  `json:"video_base64,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
