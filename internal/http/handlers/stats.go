package handlers

import (
	"net/http"

	"stylegen/internal/background"
	"stylegen/internal/domain"
	"stylegen/internal/http/respond"
	"stylegen/internal/styles"
)

type backgroundResponse struct {
	Tasks  background.Stats                  `json:"tasks"`
	Stages map[domain.Catalogue]styles.Stage `json:"stages"`
}

// Background reports detached task counters and pipeline stages.
func (a *App) Background(w http.ResponseWriter, r *http.Request) {
	resp := backgroundResponse{Stages: map[domain.Catalogue]styles.Stage{}}
	if a.Supervisor != nil {
		resp.Tasks = a.Supervisor.Stats()
	}
	if a.Stages != nil {
		resp.Stages = a.Stages.Stages()
	}
	respond.OK(w, resp)
}
