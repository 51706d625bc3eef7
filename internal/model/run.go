package model

import "time"

// Outcome classifies how one entity fared inside a batch update run.
// Batch drivers aggregate these instead of using errors as control flow.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// EntityResult is the per-entity result of one processing step.
type EntityResult struct {
	Key     string  `json:"key"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// RunSummary aggregates the results of one full update run. One
// entity's failure never aborts its siblings; it only shows up here.
type RunSummary struct {
	Kind       string         `json:"kind"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Updated    int            `json:"updated"`
	Unchanged  int            `json:"unchanged"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Results    []EntityResult `json:"results"`
}

// NewRunSummary starts a summary for a run of the given kind.
func NewRunSummary(kind string) *RunSummary {
	return &RunSummary{Kind: kind, StartedAt: time.Now().UTC()}
}

// Record appends one entity result and bumps the matching counter.
func (r *RunSummary) Record(key string, outcome Outcome, reason string) {
	r.Results = append(r.Results, EntityResult{Key: key, Outcome: outcome, Reason: reason})
	switch outcome {
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// UpdateRun is the persisted record of one finished update run.
type UpdateRun struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}
