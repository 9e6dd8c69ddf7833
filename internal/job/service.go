package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/maauso/editkit/internal/export"
	"github.com/maauso/editkit/internal/media"
)

// Exporter runs one export in the background. It is implemented by
// export.Exporter.
type Exporter interface {
	ExportAsync(ctx context.Context, req export.Request, done func(*export.Result, error)) error
}

// Store reads finished exports back and publishes them. It is implemented
// by storage.LocalStorage and storage.S3Storage.
type Store interface {
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)
	CleanupTemp(ctx context.Context, paths []string) error
	UploadToS3(ctx context.Context, key, contentType string, data io.Reader) (string, error)
}

// ExportInput is an export request tied to an editor session.
type ExportInput struct {
	// SessionID identifies the editor session. Empty IDs never supersede
	// each other.
	SessionID string
	Request   export.Request
	// PushToS3 publishes the output once it is written.
	PushToS3 bool
}

type activeExport struct {
	jobID  string
	cancel context.CancelFunc
}

// ExportService runs exports as jobs. At most one export per session is
// live: submitting a new one cancels the previous export and marks its job
// CANCELLED.
type ExportService struct {
	repo     Repository
	exporter Exporter
	store    Store
	logger   *slog.Logger

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	active map[string]activeExport
	wg     sync.WaitGroup
}

// NewExportService creates an ExportService. A nil logger uses slog.Default().
func NewExportService(repo Repository, exporter Exporter, store Store, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &ExportService{
		repo:     repo,
		exporter: exporter,
		store:    store,
		logger:   logger,
		base:     base,
		stop:     stop,
		active:   make(map[string]activeExport),
	}
}

// Submit records a job for in and starts the export. The returned job is
// SKIPPED when the edits leave nothing to export, otherwise RUNNING.
func (s *ExportService) Submit(ctx context.Context, in ExportInput) (*Job, error) {
	job := New(in.SessionID)
	job.PushToS3 = in.PushToS3

	s.logger.Info("creating export job",
		slog.String("job_id", job.ID),
		slog.String("session_id", in.SessionID),
		slog.Bool("animated", in.Request.Frames != nil),
		slog.Bool("push_to_s3", in.PushToS3),
	)

	// A no-op edit is skipped before it can supersede live work.
	if !in.Request.Factor.AllowsExport() {
		s.logger.Info("nothing to export", slog.String("job_id", job.ID))
		if err := job.Skip(); err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, job); err != nil {
			return nil, err
		}
		return job.Clone(), nil
	}

	if err := job.Start(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.base)
	s.supersede(ctx, in.SessionID, activeExport{jobID: job.ID, cancel: cancel})

	err := s.exporter.ExportAsync(runCtx, in.Request, func(res *export.Result, err error) {
		s.finish(runCtx, job.ID, in.SessionID, res, err)
	})
	if err == nil {
		return job.Clone(), nil
	}

	cancel()
	if !s.release(in.SessionID, job.ID) {
		return s.repo.FindByID(ctx, job.ID)
	}
	if errors.Is(err, export.ErrNothingToProcess) {
		s.logger.Info("nothing to export", slog.String("job_id", job.ID))
		_ = job.Skip()
	} else {
		_ = job.Fail(err.Error())
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

// supersede registers next as the live export of sessionID and cancels
// whatever was live before it.
func (s *ExportService) supersede(ctx context.Context, sessionID string, next activeExport) {
	if sessionID == "" {
		sessionID = next.jobID
	}

	s.mu.Lock()
	prev, ok := s.active[sessionID]
	s.active[sessionID] = next
	s.mu.Unlock()

	if !ok {
		return
	}
	prev.cancel()
	s.cancelJob(ctx, prev.jobID)
}

// release forgets jobID as the live export of sessionID. It reports false
// when a newer export already took its place.
func (s *ExportService) release(sessionID, jobID string) bool {
	if sessionID == "" {
		sessionID = jobID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.active[sessionID]
	if !ok || cur.jobID != jobID {
		return false
	}
	delete(s.active, sessionID)
	return true
}

func (s *ExportService) cancelJob(ctx context.Context, jobID string) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return
	}
	if err := job.Cancel(); err != nil {
		return
	}
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save cancelled job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("export superseded", slog.String("job_id", jobID))
}

func (s *ExportService) finish(ctx context.Context, jobID, sessionID string, res *export.Result, exportErr error) {
	if !s.release(sessionID, jobID) {
		return
	}

	if exportErr != nil || !s.pushes(ctx, jobID) {
		s.settle(ctx, jobID, res, exportErr, "")
		return
	}

	// Publishing does blocking I/O; keep it off the completion queue.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		url, err := s.publish(ctx, jobID, res)
		s.settle(ctx, jobID, res, err, url)
	}()
}

func (s *ExportService) pushes(ctx context.Context, jobID string) bool {
	job, err := s.repo.FindByID(ctx, jobID)
	return err == nil && job.PushToS3
}

func (s *ExportService) publish(ctx context.Context, jobID string, res *export.Result) (string, error) {
	rc, err := s.store.LoadTemp(ctx, res.Destination.Path)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	ct := media.DetectContentType(data)

	key := "exports/" + jobID + filepath.Ext(res.Destination.Path)
	url, err := s.store.UploadToS3(ctx, key, ct.MIME, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("upload output: %w", err)
	}
	return url, nil
}

// settle moves a running job to its final state. The write uses a context
// detached from cancellation so a shutdown still records the outcome.
func (s *ExportService) settle(ctx context.Context, jobID string, res *export.Result, err error, url string) {
	ctx = context.WithoutCancel(ctx)
	job, findErr := s.repo.FindByID(ctx, jobID)
	if findErr != nil {
		s.logger.Error("finished export has no job", slog.String("job_id", jobID))
		return
	}

	if err != nil {
		s.logger.Error("export failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		_ = job.Fail(err.Error())
	} else {
		_ = job.Complete(Output{
			Path: res.Destination.Path,
			URL:  url,
			Kind: string(res.Kind),
			Size: res.Size,
		})
		s.logger.Info("export completed",
			slog.String("job_id", jobID),
			slog.String("kind", string(res.Kind)),
			slog.String("size", humanize.Bytes(uint64(res.Size))),
		)
	}

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// GetJob retrieves a job by ID.
func (s *ExportService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// OpenOutput opens the file a completed job wrote.
func (s *ExportService) OpenOutput(ctx context.Context, job *Job) (io.ReadCloser, error) {
	if job.Status != StatusCompleted || job.Output.Path == "" {
		return nil, fmt.Errorf("job %s has no output", job.ID)
	}
	return s.store.LoadTemp(ctx, job.Output.Path)
}

// DeleteOutput removes the local file of a completed job. Deleting an
// output twice is not an error.
func (s *ExportService) DeleteOutput(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Output.Path != "" {
		if err := s.store.CleanupTemp(ctx, []string{job.Output.Path}); err != nil {
			return fmt.Errorf("delete output: %w", err)
		}
	}
	job.ClearOutput()
	if err := s.repo.Save(ctx, job); err != nil {
		return err
	}
	s.logger.Info("export output deleted", slog.String("job_id", id))
	return nil
}

// Close cancels every live export, marks their jobs CANCELLED and waits for
// pending publishes to settle.
func (s *ExportService) Close() {
	s.stop()

	s.mu.Lock()
	live := s.active
	s.active = make(map[string]activeExport)
	s.mu.Unlock()

	for _, a := range live {
		s.cancelJob(context.Background(), a.jobID)
	}
	s.wg.Wait()
}
