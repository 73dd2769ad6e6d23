// Package handlers exposes the style catalogue and generation endpoints.
package handlers

import (
	"context"
	"net/http"

	"stylegen/internal/background"
	"stylegen/internal/domain"
	"stylegen/internal/generation"
	"stylegen/internal/infra"
	"stylegen/internal/styles"
	"stylegen/internal/tasks"
)

// Backup receives upstream payloads for artifact capture.
type Backup interface {
	Capture(ctx context.Context, payload any) int
}

// StageReporter reports the latest pipeline stage of each catalogue.
type StageReporter interface {
	Stages() map[domain.Catalogue]styles.Stage
}

// App holds the dependencies shared by every handler.
type App struct {
	Reader     *styles.Reader
	Cache      *styles.Cache
	Refresher  styles.Refresher
	Stages     StageReporter
	Dispatcher *generation.Dispatcher
	Normalizer *generation.Normalizer
	Poller     tasks.Poller
	Backup     Backup
	Supervisor *background.Supervisor
	Logger     *infra.Logger

	maxBody int64
}

// DefaultMaxBody caps request bodies; inline base64 images dominate.
const DefaultMaxBody = 32 << 20

func (a *App) bodyLimit() int64 {
	if a.maxBody > 0 {
		return a.maxBody
	}
	return DefaultMaxBody
}

func (a *App) log() *infra.Logger {
	return infra.Component(a.Logger, "http")
}

func (a *App) backupFunc() generation.BackupFunc {
	if a.Backup == nil {
		return nil
	}
	return func(ctx context.Context, payload any) {
		a.Backup.Capture(ctx, payload)
	}
}

func catalogueParam(r *http.Request, fallback domain.Catalogue) (domain.Catalogue, bool) {
	raw := r.URL.Query().Get("catalogue")
	if raw == "" {
		return fallback, true
	}
	cat := domain.Catalogue(raw)
	return cat, cat.Valid()
}
