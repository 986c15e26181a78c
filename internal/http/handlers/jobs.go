package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"bananalab/internal/domain"
)

type batchTriggerRequest struct {
	Phases    []int   `json:"phases"`
	Delay     float64 `json:"delay"`
	BatchSize int     `json:"batch_size"`
	DryRun    bool    `json:"dry_run"`
	Budget    float64 `json:"budget,omitempty"`
}

type batchTriggerResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// BatchTrigger enqueues a campaign run and returns its job id immediately.
// The worker picks the job up out-of-band; nothing generates inline here.
func (a *App) BatchTrigger(w http.ResponseWriter, r *http.Request) {
	var req batchTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Phases) == 0 {
		req.Phases = []int{1, 2, 3, 4, 5}
	}
	for _, p := range req.Phases {
		if p < 1 || p > 5 {
			a.error(w, http.StatusBadRequest, "bad_request", "phases must be between 1 and 5")
			return
		}
	}
	sort.Ints(req.Phases)
	if req.Delay < 0 || req.BatchSize < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "delay and batch_size must not be negative")
		return
	}
	if req.Delay == 0 {
		req.Delay = 5
	}

	payload := domain.BatchPayload{
		Delay:     req.Delay,
		BatchSize: req.BatchSize,
		DryRun:    req.DryRun,
		Budget:    req.Budget,
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), req.Phases, payload)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: enqueue batch job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, batchTriggerResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}

// BatchStatus returns a job's state and, once finished, its run report.
func (a *App) BatchStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("http: load batch job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := map[string]any{
		"id":         job.ID,
		"phases":     job.Phases,
		"status":     job.Status,
		"payload":    json.RawMessage(job.PayloadJSON),
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if len(job.ReportJSON) > 0 {
		resp["report"] = json.RawMessage(job.ReportJSON)
	}
	a.json(w, http.StatusOK, resp)
}
