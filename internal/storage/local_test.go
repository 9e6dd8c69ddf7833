package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "exports")

		storage, err := NewLocalStorage(tempDir)
		require.NoError(t, err)
		assert.Equal(t, tempDir, storage.TempDir())

		info, err := os.Stat(tempDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "editkit"), storage.TempDir())
	})
}

func TestLocalStorage_TempPath(t *testing.T) {
	storage := setupTestStorage(t)

	a, err := storage.TempPath(".png")
	require.NoError(t, err)
	b, err := storage.TempPath("gif")
	require.NoError(t, err)

	assert.Equal(t, storage.TempDir(), filepath.Dir(a))
	assert.Equal(t, ".png", filepath.Ext(a))
	assert.Equal(t, ".gif", filepath.Ext(b))
	assert.NotEqual(t, strings.TrimSuffix(a, ".png"), strings.TrimSuffix(b, ".gif"))

	_, err = os.Stat(a)
	assert.True(t, os.IsNotExist(err), "TempPath does not create the file")

	noExt, err := storage.TempPath("")
	require.NoError(t, err)
	assert.Empty(t, filepath.Ext(noExt))
}

func TestLocalStorage_WriteFile(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(storage.TempDir(), "out", "result.png")
		require.NoError(t, storage.WriteFile(ctx, path, []byte("png")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "png", string(content))
	})

	t.Run("replaces an existing file", func(t *testing.T) {
		path, err := storage.TempPath(".bin")
		require.NoError(t, err)
		require.NoError(t, storage.WriteFile(ctx, path, []byte("first")))
		require.NoError(t, storage.WriteFile(ctx, path, []byte("second")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))
	})

	t.Run("fails when the parent is a file", func(t *testing.T) {
		blocker := filepath.Join(storage.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0600))

		err := storage.WriteFile(ctx, filepath.Join(blocker, "x.png"), []byte("x"))
		assert.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.WriteFile(ctx, filepath.Join(storage.TempDir(), "never.png"), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_SaveTemp(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("saves data to temp file", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "upload", bytes.NewReader([]byte("video bytes")))
		require.NoError(t, err)
		assert.Contains(t, filepath.Base(path), "upload_")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(content))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.SaveTemp(ctx, "upload", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_LoadTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("loads saved file", func(t *testing.T) {
		path, err := storage.SaveTemp(ctx, "load", bytes.NewReader([]byte("load data")))
		require.NoError(t, err)

		reader, err := storage.LoadTemp(ctx, path)
		require.NoError(t, err)
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "load data", string(content))
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		_, err := storage.LoadTemp(ctx, filepath.Join(storage.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.LoadTemp(ctx, "/some/path")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for range 3 {
			path, err := storage.SaveTemp(ctx, "cleanup", bytes.NewReader([]byte("data")))
			require.NoError(t, err)
			paths = append(paths, path)
		}

		require.NoError(t, storage.CleanupTemp(ctx, paths))
		for _, p := range paths {
			_, err := os.Stat(p)
			assert.True(t, os.IsNotExist(err), "file %s still exists", p)
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		assert.NoError(t, storage.CleanupTemp(ctx, []string{"/non/existent/file"}))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.CleanupTemp(ctx, []string{"/some/path"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_UploadToS3(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.UploadToS3(context.Background(), "key", "image/png", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, ErrS3NotConfigured)
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}
