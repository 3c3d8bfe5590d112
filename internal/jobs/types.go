// Package jobs defines the asynchronous receipt-scanning work queue.
// Uploaded receipt images are scanned out of band; the job record tracks
// progress and the expense records created from the scan.
package jobs

import (
	"context"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// ScanReceiptJob is one queued receipt scan. The image itself lives in
// object storage; the job carries its URI.
type ScanReceiptJob struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	GCSURI   string `json:"gcs_uri"`
	MIMEType string `json:"mime_type"`

	// Currency is the user's default currency for items whose currency the
	// scan cannot determine.
	Currency string `json:"currency"`

	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`

	// RecordIDs are the expense records created by a completed scan.
	RecordIDs []string `json:"record_ids,omitempty"`
}

// Publisher enqueues scan jobs. The in-memory queue serves a single
// instance; a broker-backed implementation can replace it without
// touching callers.
type Publisher interface {
	PublishScanReceipt(ctx context.Context, job *ScanReceiptJob) error
	Close() error
}

// Handler processes one job. A returned error marks the job for retry.
type Handler func(ctx context.Context, job *ScanReceiptJob) error

// Consumer pulls jobs and runs them through a handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Store tracks job state so clients can poll scan progress.
type Store interface {
	SaveJob(ctx context.Context, job *ScanReceiptJob) error
	GetJob(ctx context.Context, jobID string) (*ScanReceiptJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*ScanReceiptJob, error)
}

// Filter narrows a job listing.
type Filter struct {
	UserID string
	Status Status
	Limit  int
}
