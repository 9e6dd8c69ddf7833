// Package bootstrap wires the export and trim services from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/editkit/internal/config"
	"github.com/maauso/editkit/internal/export"
	"github.com/maauso/editkit/internal/job"
	"github.com/maauso/editkit/internal/media"
	"github.com/maauso/editkit/internal/server"
	"github.com/maauso/editkit/internal/storage"
)

// completionBuffer is the number of finished exports that can wait for the
// completion queue.
const completionBuffer = 64

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Exports  *job.ExportService
	Handlers *server.Handlers
	Store    storage.Storage

	queue *export.SerialQueue
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	codec := media.NewCodec()
	queue := export.NewSerialQueue(completionBuffer)
	exporter := export.NewExporter(store,
		export.WithCodec(codec),
		export.WithDispatcher(queue),
		export.WithFrameWorkers(cfg.FrameWorkers),
		export.WithLogger(logger),
	)

	svc := job.NewExportService(job.NewMemoryRepository(), exporter, store, logger)

	video := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	handlers := server.NewHandlers(svc, video, store, logger,
		server.WithCodec(codec),
		server.WithTrimConfig(cfg.Trim()),
	)

	return &Dependencies{
		Exports:  svc,
		Handlers: handlers,
		Store:    store,
		queue:    queue,
	}, nil
}

// Close cancels running exports and drains the completion queue.
func (d *Dependencies) Close() {
	d.Exports.Close()
	d.queue.Close()
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(cfg.TempDir, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured", slog.String("temp_dir", cfg.TempDir))
	return localStore, nil
}
