package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledger-bot/internal/wizard"
)

var (
	// ErrJobNotFound is returned when a job ID or update ID is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateUpdate is returned when a chat update was already accepted.
	ErrDuplicateUpdate = errors.New("update already received")

	// ErrQueueClosed is returned after the queue has been stopped.
	ErrQueueClosed = errors.New("queue is closed")
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeChatEvent represents one inbound chat event.
	JobTypeChatEvent JobType = "chat_event"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// EventJob is a chat event waiting for, or done with, the wizard.
type EventJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UpdateID is the chat platform's update id, used to drop redeliveries.
	// Zero disables the check.
	UpdateID int `json:"update_id,omitempty"`

	// UserID selects the worker; events of one user are handled in order.
	UserID int64 `json:"user_id"`

	// Kind is the event kind, kept for listing.
	Kind string `json:"kind"`

	// Event is the payload handed to the wizard.
	Event wizard.Event `json:"-"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// NewEventJob wraps a wizard event.
func NewEventJob(updateID int, ev wizard.Event) *EventJob {
	return &EventJob{
		UpdateID: updateID,
		UserID:   ev.UserID,
		Kind:     ev.Kind.String(),
		Event:    ev,
	}
}

// GetID returns the unique job identifier.
func (j *EventJob) GetID() string {
	return j.JobID
}

// GetType returns the job type.
func (j *EventJob) GetType() JobType {
	return JobTypeChatEvent
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishEvent enqueues a chat event. It returns ErrDuplicateUpdate for
	// an update id that was already accepted.
	PublishEvent(ctx context.Context, job *EventJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. Chat events are not retried; a returned
// error only marks the job failed.
type JobHandler func(ctx context.Context, job *EventJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *EventJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*EventJob, error)

	// FindByUpdateID retrieves the job created for a chat update.
	FindByUpdateID(ctx context.Context, updateID int) (*EventJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*EventJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by chat user.
	UserID int64

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
