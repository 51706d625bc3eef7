package service

import (
	"sync"
	"time"

	"markettrack-api/internal/model"
	"markettrack-api/pkg/uid"
)

// JobStatus is the lifecycle state of one background update job.
// Completed and failed are terminal; there is no cancelled state.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a point-in-time view of one background run.
type Job struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Status     JobStatus         `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Summary    *model.RunSummary `json:"summary,omitempty"`
}

// JobRegistry is the process-local store of running and recently
// finished jobs. It is transient liveness state, keyed by job id and
// rebuildable from nothing after a restart; durable run history lives
// in the update_runs table instead.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*Job)}
}

// Start registers a new running job and returns its snapshot.
func (r *JobRegistry) Start(kind string) Job {
	job := &Job{
		ID:        uid.New(),
		Kind:      kind,
		Status:    JobRunning,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

// Complete marks a job as finished with its run summary.
func (r *JobRegistry) Complete(id string, summary *model.RunSummary) {
	r.finish(id, JobCompleted, "", summary)
}

// Fail marks a job as failed with the error message.
func (r *JobRegistry) Fail(id string, errMsg string) {
	r.finish(id, JobFailed, errMsg, nil)
}

func (r *JobRegistry) finish(id string, status JobStatus, errMsg string, summary *model.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = status
	job.FinishedAt = &now
	job.Error = errMsg
	job.Summary = summary
}

// Get returns a snapshot of one job. A lookup for an unknown key
// reports not-found instead of panicking or erroring.
func (r *JobRegistry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Clear drops a job from the registry.
func (r *JobRegistry) Clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}
