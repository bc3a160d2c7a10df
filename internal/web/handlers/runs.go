package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/pipeline"
)

// ClusterRunner executes a clustering run. Satisfied by pipeline.Runner.
type ClusterRunner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error)
}

// RunStore reads persisted run records. Satisfied by the postgres cluster
// repository; nil limits the API to in-memory jobs.
type RunStore interface {
	GetRun(ctx context.Context, runID string) (*database.StoredRun, error)
	ListRuns(ctx context.Context) ([]database.StoredRun, error)
}

// RunsHandler handles clustering run endpoints
type RunsHandler struct {
	runner     ClusterRunner
	store      RunStore
	jobManager *JobManager
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(runner ClusterRunner, store RunStore, jm *JobManager) *RunsHandler {
	return &RunsHandler{
		runner:     runner,
		store:      store,
		jobManager: jm,
	}
}

// StartRequest represents a run start request
type StartRequest struct {
	SubClusters bool `json:"sub_clusters"`
}

// Start starts a new clustering run
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, RunJobOptions{SubClusters: req.SubClusters})

	go h.runClusterJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of a clustering run. Falls back to the
// persisted run record for jobs that are no longer in memory.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	if job := h.jobManager.GetJob(jobID); job != nil {
		respondJSON(w, http.StatusOK, job)
		return
	}

	if h.store != nil {
		run, err := h.store.GetRun(r.Context(), jobID)
		if err == nil {
			respondJSON(w, http.StatusOK, run)
			return
		}
	}

	respondError(w, http.StatusNotFound, "run not found")
}

// List returns all known runs, persisted history preferred.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		runs, err := h.store.ListRuns(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"runs": h.jobManager.ListJobs()})
}

// Events streams run events via SSE
func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel cancels a clustering run
func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runClusterJob runs the clustering pipeline in the background
func (h *RunsHandler) runClusterJob(job *RunJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Clustering run started"})

	result, err := h.runner.Run(ctx, pipeline.RunOptions{
		RunID:       job.ID,
		SubClusters: job.Options.SubClusters,
		OnProgress: func(info pipeline.ProgressInfo) {
			job.mu.Lock()
			job.ProcessedPhotos = info.Current
			job.TotalPhotos = info.Total
			if info.Total > 0 {
				job.Progress = int(float64(info.Current) / float64(info.Total) * 100)
			}
			job.mu.Unlock()
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"phase":   info.Phase,
					"current": info.Current,
					"total":   info.Total,
				},
			})
		},
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Run was cancelled"})
			return
		}
		h.failJob(job, fmt.Sprintf("clustering failed: %v", err))
		return
	}

	jobResult := &RunJobResult{
		RunID:        result.RunID,
		PhotoCount:   result.PhotoCount,
		ClusterCount: len(result.Clusters),
		Warnings:     result.Warnings,
		DurationMS:   result.Duration.Milliseconds(),
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ProcessedPhotos = result.PhotoCount
	job.Progress = 100
	job.Result = jobResult
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: jobResult})
}

func (h *RunsHandler) failJob(job *RunJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
