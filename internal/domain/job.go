package domain

import "time"

// JobStatus enumerates batch job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// BatchJob is a queued orchestrator run. The API enqueues it and returns its
// id immediately; the worker claims it and executes out-of-band.
type BatchJob struct {
	ID          string
	Phases      []int
	Status      JobStatus
	PayloadJSON []byte
	ReportJSON  []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BatchPayload is the operator-facing job payload.
type BatchPayload struct {
	Delay     float64 `json:"delay"`
	BatchSize int     `json:"batch_size"`
	DryRun    bool    `json:"dry_run"`
	Budget    float64 `json:"budget,omitempty"`
}
