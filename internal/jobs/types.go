// Package jobs defines the async job model for account syncs. The queue
// abstraction allows swapping the in-memory implementation for Cloud Tasks
// or Pub/Sub without touching the worker.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/statement-sync/internal/statement"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSyncAccount represents a full account sync run.
	JobTypeSyncAccount JobType = "sync_account"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ErrAccountBusy is returned when an account already has a sync in flight.
// The database and tracking map are read and written whole, so two
// concurrent runs for one account would clobber each other's saves.
var ErrAccountBusy = errors.New("account already has a sync job in flight")

// SyncAccountJob is a request to run one account's batch sync.
type SyncAccountJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// AccountKey is the registry key of the account to sync.
	AccountKey string `json:"account_key"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result holds the batch outcome once the job has run.
	Result *statement.BatchResult `json:"result,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *SyncAccountJob) GetID() string        { return j.JobID }
func (j *SyncAccountJob) GetType() JobType     { return JobTypeSyncAccount }
func (j *SyncAccountJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishSyncAccount enqueues an account sync. Returns ErrAccountBusy
	// when that account already has a pending or running job.
	PublishSyncAccount(ctx context.Context, job *SyncAccountJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue, calling the handler for
	// each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *SyncAccountJob) error
	GetJob(ctx context.Context, jobID string) (*SyncAccountJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncAccountJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	AccountKey string
	Status     JobStatus
	Limit      int
	Offset     int
}
