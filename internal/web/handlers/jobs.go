package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kozaktomas/photo-moments/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// RunJob represents an async clustering run.
type RunJob struct {
	EventBroadcaster

	ID              string        `json:"id"`
	Status          JobStatus     `json:"status"`
	Progress        int           `json:"progress"`
	TotalPhotos     int           `json:"total_photos"`
	ProcessedPhotos int           `json:"processed_photos"`
	Error           string        `json:"error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Options         RunJobOptions `json:"options"`
	Result          *RunJobResult `json:"result,omitempty"`
}

// MarshalJSON serializes the job under its lock, so status endpoints and
// SSE payloads read a consistent snapshot while the run mutates the job
// in the background.
func (j *RunJob) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	type view struct {
		ID              string        `json:"id"`
		Status          JobStatus     `json:"status"`
		Progress        int           `json:"progress"`
		TotalPhotos     int           `json:"total_photos"`
		ProcessedPhotos int           `json:"processed_photos"`
		Error           string        `json:"error,omitempty"`
		StartedAt       time.Time     `json:"started_at"`
		CompletedAt     *time.Time    `json:"completed_at,omitempty"`
		Options         RunJobOptions `json:"options"`
		Result          *RunJobResult `json:"result,omitempty"`
	}
	return json.Marshal(view{
		ID:              j.ID,
		Status:          j.Status,
		Progress:        j.Progress,
		TotalPhotos:     j.TotalPhotos,
		ProcessedPhotos: j.ProcessedPhotos,
		Error:           j.Error,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		Options:         j.Options,
		Result:          j.Result,
	})
}

// GetStatus returns the current job status (implements SSEJob).
func (j *RunJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the clustering run.
func (j *RunJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// RunJobOptions represents clustering run options.
type RunJobOptions struct {
	SubClusters bool `json:"sub_clusters"`
}

// RunJobResult represents the result of a clustering run.
type RunJobResult struct {
	RunID        string   `json:"run_id"`
	PhotoCount   int      `json:"photo_count"`
	ClusterCount int      `json:"cluster_count"`
	Warnings     []string `json:"warnings,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async clustering jobs.
type JobManager struct {
	jobs map[string]*RunJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*RunJob),
	}
}

// CreateJob creates a new clustering job.
func (m *JobManager) CreateJob(id string, options RunJobOptions) *RunJob {
	job := &RunJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Options:   options,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RunJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*RunJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*RunJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
