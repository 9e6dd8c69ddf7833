// Package storage provides the file storage behind exports: a local temp
// directory for working files and export destinations, and optional S3
// publication of finished outputs.
package storage

import (
	"context"
	"io"
)

// Storage defines temporary file handling and optional S3 publication.
type Storage interface {
	// TempPath returns a fresh, unused path under the temp directory ending
	// in ext. The file is not created.
	TempPath(ext string) (string, error)

	// WriteFile writes data to path, creating parent directories as needed.
	WriteFile(ctx context.Context, path string, data []byte) error

	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
