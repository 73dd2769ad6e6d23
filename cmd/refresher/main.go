package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stylegen/internal/bootstrap"
	"stylegen/internal/domain"
	"stylegen/internal/infra"
)

type refresher struct {
	svc      *bootstrap.Services
	logger   infra.Logger
	interval time.Duration
	drain    time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.New(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("refresher: failed to wire services")
	}
	defer svc.Close()

	r := &refresher{svc: svc, logger: logger, interval: cfg.RefreshInterval, drain: 10 * time.Minute}
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("refresher: stopped with error")
	}
	logger.Info().Msg("refresher: stopped")
}

// Run refreshes every catalogue now and then on every tick until ctx ends.
func (r *refresher) Run(ctx context.Context) error {
	interval := r.interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	r.logger.Info().Dur("interval", interval).Msg("refresher: started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs the pipeline for each catalogue and waits for the background
// fill so that ticks never overlap.
func (r *refresher) tick(ctx context.Context) {
	for _, cat := range []domain.Catalogue{domain.CatalogueStyles, domain.CatalogueTrending} {
		if ctx.Err() != nil {
			return
		}
		items, err := r.svc.Pipeline.Run(ctx, cat)
		if err != nil {
			r.logger.Error().Err(err).Str("catalogue", string(cat)).Msg("refresher: run failed")
			continue
		}
		r.logger.Info().Str("catalogue", string(cat)).Int("styles", len(items)).Msg("refresher: seeded")
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.drain)
	defer cancel()
	if err := r.svc.Supervisor.Wait(drainCtx); err != nil {
		r.logger.Warn().Err(err).Msg("refresher: background fill did not finish")
	}
	stages := r.svc.Pipeline.Stages()
	stats := r.svc.Supervisor.Stats()
	r.logger.Info().
		Str("styles", string(stages[domain.CatalogueStyles])).
		Str("trending", string(stages[domain.CatalogueTrending])).
		Int64("tasks_failed", stats.Failed).
		Msg("refresher: tick complete")
}
