// Package tasks holds the client side of long-running generation: polling a
// task until it settles and keeping enough context to resume after a restart.
package tasks

import "stylegen/internal/domain"

// WireTask is the result-poll response body.
type WireTask struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Progress      int          `json:"progress,omitempty"`
	Results       []WireResult `json:"results,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

type WireResult struct {
	URL string `json:"url"`
}

// ToWire converts a task into its response body.
func ToWire(t domain.GenerationTask) WireTask {
	w := WireTask{
		ID:            t.ID,
		Status:        string(t.Status),
		Progress:      t.Progress,
		FailureReason: t.FailureReason,
	}
	for _, u := range t.ResultURLs {
		w.Results = append(w.Results, WireResult{URL: u})
	}
	return w
}

// FromWire converts a response body into a task.
func FromWire(w WireTask) domain.GenerationTask {
	t := domain.GenerationTask{
		ID:            w.ID,
		Status:        domain.TaskStatus(w.Status),
		Progress:      w.Progress,
		FailureReason: w.FailureReason,
	}
	switch t.Status {
	case domain.TaskStatusRunning, domain.TaskStatusSucceeded, domain.TaskStatusFailed:
	default:
		t.Status = domain.TaskStatusRunning
	}
	for _, r := range w.Results {
		if r.URL != "" {
			t.ResultURLs = append(t.ResultURLs, r.URL)
		}
	}
	return t
}
