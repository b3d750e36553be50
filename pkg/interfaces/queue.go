package interfaces

import (
	"context"
	"time"

	"redwarm/internal/model"
)

// JobQueue delayed-execution queue contract for warmup steps.
// The underlying broker does not deduplicate by account; the deterministic
// per-account job key is this wrapper's convention, and callers must remove
// any outstanding job before enqueuing a replacement.
type JobQueue interface {
	// Enqueue schedules one warmup step for the account after the delay
	Enqueue(ctx context.Context, payload *model.WarmupJobPayload, delay time.Duration) error

	// FindJob locates the outstanding job for an account, nil when none
	FindJob(ctx context.Context, accountID string) (*JobInfo, error)

	// RemoveJob withdraws the outstanding job for an account.
	// Removing a job that does not exist is not an error.
	RemoveJob(ctx context.Context, accountID string) error

	// GetJobCounts retrieves aggregate queue counters
	GetJobCounts(ctx context.Context) (*JobCounts, error)

	// GetActiveJobs lists currently-executing jobs, newest first
	GetActiveJobs(ctx context.Context, limit int) ([]*JobInfo, error)

	// Ping broker liveness probe
	Ping(ctx context.Context) error
}

// JobState queue-level job state
type JobState string

const (
	JobStateScheduled JobState = "scheduled"
	JobStatePending   JobState = "pending"
	JobStateActive    JobState = "active"
	JobStateRetry     JobState = "retry"
	JobStateCompleted JobState = "completed"
	JobStateArchived  JobState = "archived"
)

// JobInfo queue-level view of one warmup job
type JobInfo struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	State       JobState   `json:"state"`
	Retried     int        `json:"retried"`
	LastErr     string     `json:"last_err,omitempty"`
	NextRunAt   time.Time  `json:"next_run_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"` // set once the job went active
}

// JobCounts aggregate queue counters
type JobCounts struct {
	Waiting   int `json:"waiting"` // pending + scheduled + retry
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}
