package domain

import (
	"encoding/json"
	"time"
)

// GenerationRequest is the provider-neutral request sent upstream. It is not
// modified after dispatch.
type GenerationRequest struct {
	Model       string
	Prompt      string
	ImageURLs   []string
	AspectRatio string
	ImageSize   string
	WantsStream bool
}

// TaskStatus enumerates the upstream task lifecycle.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// GenerationTask is a read-only view of an upstream task obtained by polling.
type GenerationTask struct {
	ID            string     `json:"id"`
	Status        TaskStatus `json:"status"`
	Progress      int        `json:"progress,omitempty"`
	ResultURLs    []string   `json:"-"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// Terminal reports whether polling should stop.
func (t GenerationTask) Terminal() bool {
	return t.Status == TaskStatusSucceeded || t.Status == TaskStatusFailed
}

// ResumableTaskTTL bounds how long a client keeps a task context around.
const ResumableTaskTTL = time.Hour

// ResumableTaskContext is persisted by clients so polling survives a reload.
type ResumableTaskContext struct {
	TaskID         string          `json:"taskId"`
	RequestKind    string          `json:"requestKind"`
	OriginalInputs json.RawMessage `json:"originalInputs,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Expired reports whether the context is older than ResumableTaskTTL at now.
func (c ResumableTaskContext) Expired(now time.Time) bool {
	return now.Sub(c.CreatedAt) > ResumableTaskTTL
}
