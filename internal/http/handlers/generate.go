package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"stylegen/internal/domain"
	"stylegen/internal/generation"
	"stylegen/internal/http/respond"
	"stylegen/internal/tasks"
)

type pollRequest struct {
	ID string `json:"id"`
}

// Generate builds the upstream request and answers in the shape the client
// asked for: an envelope, or an event stream ending in [DONE].
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := decodeJSON(w, r, a.bodyLimit(), &req); err != nil {
		respond.Error(w, err)
		return
	}
	built, err := a.Dispatcher.Build(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if err := a.Normalizer.Serve(r.Context(), w, built, a.backupFunc()); err != nil {
		a.log().Warn().Err(err).Bool("stream", built.WantsStream).Msg("generation failed")
		respond.Error(w, err)
	}
}

// GenerateResult polls one task.
func (a *App) GenerateResult(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := decodeJSON(w, r, 1<<16, &req); err != nil {
		respond.Error(w, err)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		respond.Error(w, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest))
		return
	}
	task, err := a.Poller.Poll(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if task.ID == "" {
		task.ID = id
	}
	if task.Status == domain.TaskStatusSucceeded && a.Backup != nil {
		a.Backup.Capture(r.Context(), settledPayload(task))
	}
	respond.OK(w, tasks.ToWire(task))
}

// settledPayload shapes a finished task like an upstream reply so the backup
// sink finds its artifacts. The sink dedupes by URL, so repeated polls are safe.
func settledPayload(task domain.GenerationTask) map[string]any {
	results := make([]any, 0, len(task.ResultURLs))
	for _, u := range task.ResultURLs {
		results = append(results, map[string]any{"url": u})
	}
	return map[string]any{"id": task.ID, "results": results}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrInvalidRequest, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidRequest)
	}
	return nil
}
