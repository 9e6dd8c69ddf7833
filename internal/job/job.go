// Package job tracks export requests as jobs: a small state machine per
// export, a repository to look them up, and the service that runs them.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/editkit/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the export was accepted and has not started.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the export pipeline is working on the job.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the output was written.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the pipeline returned an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates a newer export for the same session replaced
	// this one, or the service shut down before it finished.
	StatusCancelled Status = "CANCELLED"
	// StatusSkipped indicates the edits left nothing to export.
	StatusSkipped Status = "SKIPPED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusSkipped},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusSkipped},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusSkipped:   {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Output describes what a completed export produced.
type Output struct {
	// Path is the local file the export was written to.
	Path string
	// URL is set when the file was published to S3.
	URL string
	// Kind is "normal" or "gif".
	Kind string
	// Size is the encoded size in bytes.
	Size int
}

// Job is one export of an editor session.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// SessionID groups jobs of the same editor session. A newer job for a
	// session supersedes the older one.
	SessionID string
	// Status is the current job state.
	Status Status
	// Output is populated once the job completes.
	Output Output
	// PushToS3 indicates whether to publish the result to S3.
	PushToS3 bool
	// Error contains the error message if the job failed.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a Job with a generated ID in IN_QUEUE status.
func New(sessionID string) *Job {
	return NewWithID(id.Generate(), sessionID)
}

// NewWithID creates a Job with the given ID in IN_QUEUE status.
func NewWithID(jobID, sessionID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		SessionID: sessionID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo changes the job status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusSkipped:
		j.CompletedAt = j.UpdatedAt
	}
	return nil
}

// Start moves the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete records the output and moves the job to COMPLETED.
func (j *Job) Complete(out Output) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.Output = out
	return nil
}

// Fail records errMsg and moves the job to FAILED.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel moves the job to CANCELLED.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Skip moves the job to SKIPPED.
func (j *Job) Skip() error {
	return j.TransitionTo(StatusSkipped)
}

// SetURL records the published location of the output.
func (j *Job) SetURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output.URL = url
	j.UpdatedAt = time.Now()
}

// ClearOutput forgets the output after its file was deleted.
func (j *Job) ClearOutput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output.Path = ""
	j.Output.URL = ""
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status.
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal reports whether the job can no longer change state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		SessionID:   j.SessionID,
		Status:      j.Status,
		Output:      j.Output,
		PushToS3:    j.PushToS3,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
