// Package jobs defines background work on uploaded documents. Extraction
// runs outside the request that uploaded the file; callers poll the job.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractDocument extracts candidate transactions from an upload.
	JobTypeExtractDocument JobType = "extract_document"
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
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is used when a job does not set MaxRetries.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// ErrPermanent marks handler errors that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the queue fails the job without retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// WillRetry reports whether a queue retries job after an attempt that
// returned err.
func WillRetry(job *ExtractDocumentJob, err error) bool {
	return err != nil && !errors.Is(err, ErrPermanent) && job.RetryCount < job.MaxRetries
}

// ExtractDocumentJob asks the worker to extract transactions from an
// archived upload and stage them for confirmation.
type ExtractDocumentJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"jobId"`

	// UploadID is the uploaded-file record the job reports progress on.
	UploadID string `json:"uploadId"`

	// ArchiveURI is where the document bytes were archived.
	ArchiveURI string `json:"archiveUri"`

	FileName     string              `json:"fileName"`
	MIMEType     string              `json:"mimeType"`
	DocumentType domain.DocumentType `json:"documentType"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Outcome is the extraction outcome once the job completed.
	Outcome string `json:"outcome,omitempty"`

	// Staged is the number of candidates staged for confirmation.
	Staged int `json:"staged"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retryCount"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"maxRetries"`
}

// Type returns the job type.
func (j *ExtractDocumentJob) Type() JobType {
	return JobTypeExtractDocument
}

// Done reports whether the job reached a final status.
func (j *ExtractDocumentJob) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtractDocument enqueues a document extraction job.
	PublishExtractDocument(ctx context.Context, job *ExtractDocumentJob) error

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

// JobHandler processes a job. A returned error marks the attempt as failed
// and triggers a retry while retries remain.
type JobHandler func(ctx context.Context, job *ExtractDocumentJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExtractDocumentJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExtractDocumentJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractDocumentJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UploadID filters jobs by uploaded-file ID.
	UploadID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
