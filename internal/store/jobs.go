package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/sqlinline"
)

// ErrNoJobAvailable means the queue held no claimable job.
var ErrNoJobAvailable = errors.New("no job available")

// JobStore manages the batch job queue. Claiming uses
// `for update skip locked` so multiple workers never grab the same job.
type JobStore struct {
	sql infra.SQLExecutor
}

func NewJobStore(sql infra.SQLExecutor) *JobStore {
	return &JobStore{sql: sql}
}

// Enqueue inserts a QUEUED job and returns its id immediately.
func (s *JobStore) Enqueue(ctx context.Context, phases []int, payload domain.BatchPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	row := s.sql.QueryRow(ctx, sqlinline.QEnqueueBatchJob, phases, raw)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("enqueue batch job: %w", err)
	}
	return id, nil
}

// Claim atomically takes the oldest queued job and marks it RUNNING.
func (s *JobStore) Claim(ctx context.Context) (domain.BatchJob, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QClaimBatchJob)
	var job domain.BatchJob
	if err := row.Scan(&job.ID, &job.Phases, &job.PayloadJSON); err != nil {
		if infra.IsNoRows(err) {
			return domain.BatchJob{}, ErrNoJobAvailable
		}
		return domain.BatchJob{}, err
	}
	// Ensure payload bytes are not aliased.
	job.PayloadJSON = append([]byte(nil), job.PayloadJSON...)
	job.Status = domain.JobStatusRunning
	return job, nil
}

// Finish writes the terminal status and the run report.
func (s *JobStore) Finish(ctx context.Context, jobID string, status domain.JobStatus, report any) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.sql.Exec(ctx, sqlinline.QFinishBatchJob, jobID, string(status), raw)
	return err
}

// Get returns a job by id.
func (s *JobStore) Get(ctx context.Context, jobID string) (domain.BatchJob, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectBatchJob, jobID)
	var job domain.BatchJob
	if err := row.Scan(&job.ID, &job.Phases, &job.PayloadJSON, &job.Status, &job.ReportJSON, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.BatchJob{}, domain.ErrNotFound
		}
		return domain.BatchJob{}, err
	}
	return job, nil
}
