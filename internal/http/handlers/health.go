package handlers

import (
	"net/http"

	"stylegen/internal/http/respond"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
