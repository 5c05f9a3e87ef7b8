// Package jobs provides the PostgreSQL-backed ingestion job queue and the
// worker pool that drains it.
package jobs

import "time"

// Status is the lifecycle state of an ingestion job. A job moves from queued
// to running to exactly one terminal state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one queued URL ingestion. Result holds the terminal payload: the
// pipeline result on success, an error description on failure.
type Job struct {
	ID        string         `json:"task_id"`
	URL       string         `json:"url"`
	Status    Status         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
