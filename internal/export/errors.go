package export

import (
	"errors"
	"fmt"
)

// Static errors for export failures.
var (
	// ErrInputEmpty is returned when the request carries no image.
	ErrInputEmpty = errors.New("export input is empty")
	// ErrTypeMismatch is returned when the destination kind does not match
	// the content being exported.
	ErrTypeMismatch = errors.New("destination kind does not match content")
	// ErrCropFailed is returned when the crop transform cannot be applied.
	ErrCropFailed = errors.New("crop failed")
	// ErrDataAcquisitionFailed is returned when the processed image cannot
	// be encoded.
	ErrDataAcquisitionFailed = errors.New("image data acquisition failed")
	// ErrCompressionFailed is returned when recompressing the output or its
	// thumbnail fails.
	ErrCompressionFailed = errors.New("compression failed")
	// ErrWriteFileFailed is matched by every *WriteFileError.
	ErrWriteFileFailed = errors.New("write file failed")
	// ErrBlankFrame is returned when an animated export has no frame left.
	ErrBlankFrame = errors.New("animated image has no frames")
	// ErrNothingToProcess is returned when the adjustment factor describes no
	// change. It is benign; callers treat it as a skipped export.
	ErrNothingToProcess = errors.New("nothing to process")
)

// WriteFileError reports a failed write of the export destination.
type WriteFileError struct {
	Path string
	Err  error
}

func (e *WriteFileError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteFileError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrWriteFileFailed.
func (e *WriteFileError) Is(target error) bool {
	return target == ErrWriteFileFailed
}
