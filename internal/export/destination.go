package export

import (
	"context"
	"image"

	"github.com/maauso/editkit/internal/adjust"
)

// ContentKind is the container of an exported file.
type ContentKind string

// Content kinds.
const (
	KindNormal ContentKind = "normal"
	KindGIF    ContentKind = "gif"
)

// Destination is where an export is written. A zero Kind accepts any content.
type Destination struct {
	Path string      `json:"path"`
	Kind ContentKind `json:"kind,omitempty"`
}

// FileStore allocates and writes export destinations. It is implemented by
// storage.LocalStorage.
type FileStore interface {
	// TempPath returns a fresh path under the temp directory with the given
	// extension, including its leading dot.
	TempPath(ext string) (string, error)
	// WriteFile writes data to path, replacing any existing file.
	WriteFile(ctx context.Context, path string, data []byte) error
}

// Result describes a successful export.
type Result struct {
	// Thumbnail is a low quality preview for still exports and the first
	// processed frame for animated ones.
	Thumbnail   image.Image
	Destination Destination
	Kind        ContentKind
	// Adjustment is the factor the export was produced from.
	Adjustment adjust.Factor
	// Size is the number of bytes written.
	Size int
}
