package upstream

import (
	"encoding/json"
	"fmt"
	"strings"

	"stylegen/internal/artifact"
	"stylegen/internal/domain"
)

type wireTask struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Progress      json.Number     `json:"progress"`
	Results       []wireResult    `json:"results"`
	FailureReason string          `json:"failure_reason"`
	Error         json.RawMessage `json:"error"`
	Data          json.RawMessage `json:"data"`
}

type wireResult struct {
	URL string `json:"url"`
}

// ParseTask decodes a result reply, with or without a {"code","data"}
// envelope. Unknown statuses read as running.
func ParseTask(raw []byte) (domain.GenerationTask, error) {
	var w wireTask
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.GenerationTask{}, &domain.UpstreamError{Message: fmt.Sprintf("malformed result body: %v", err)}
	}
	if w.Status == "" && len(w.Data) > 0 && w.Data[0] == '{' {
		var inner wireTask
		if err := json.Unmarshal(w.Data, &inner); err == nil {
			w = inner
		}
	}

	task := domain.GenerationTask{
		ID:            strings.TrimSpace(w.ID),
		Status:        normalizeStatus(w.Status),
		FailureReason: strings.TrimSpace(w.FailureReason),
	}
	if task.FailureReason == "" {
		var msg string
		if json.Unmarshal(w.Error, &msg) == nil {
			task.FailureReason = strings.TrimSpace(msg)
		}
	}
	if p, err := w.Progress.Float64(); err == nil {
		task.Progress = clampProgress(int(p))
	}
	for _, r := range w.Results {
		if u := strings.TrimSpace(r.URL); u != "" {
			task.ResultURLs = append(task.ResultURLs, u)
		}
	}
	if task.Status == domain.TaskStatusSucceeded {
		if len(task.ResultURLs) == 0 {
			var generic any
			if json.Unmarshal(raw, &generic) == nil {
				task.ResultURLs = artifact.URLs(generic)
			}
		}
		task.Progress = 100
	}
	if task.Status == domain.TaskStatusFailed && task.FailureReason == "" {
		task.FailureReason = "generation failed"
	}
	return task, nil
}

func normalizeStatus(s string) domain.TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded", "success", "completed", "done":
		return domain.TaskStatusSucceeded
	case "failed", "failure", "error", "cancelled", "canceled":
		return domain.TaskStatusFailed
	default:
		return domain.TaskStatusRunning
	}
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
