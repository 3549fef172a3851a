package model

import "time"

// RunStatus represents the state of a QA run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the persisted record of one series passing through the pipeline.
type Run struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	Status    RunStatus `json:"status"`
	Report    *QAReport `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
