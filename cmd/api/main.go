package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stylegen/internal/bootstrap"
	"stylegen/internal/generation"
	"stylegen/internal/http/handlers"
	httpapi "stylegen/internal/http/httpapi"
	"stylegen/internal/infra"
)

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
		logger.Fatal().Err(err).Msg("api: failed to wire services")
	}
	defer svc.Close()

	app := &handlers.App{
		Reader:     svc.Reader,
		Cache:      svc.Cache,
		Refresher:  svc.Pipeline,
		Stages:     svc.Pipeline,
		Dispatcher: generation.NewDispatcher(svc.Cache, svc.Synth, cfg.UpstreamModel, &logger),
		Normalizer: generation.NewNormalizer(svc.Upstream, svc.Supervisor, cfg.UpstreamTimeout, &logger),
		Poller:     svc.Upstream,
		Backup:     svc.Sink,
		Supervisor: svc.Supervisor,
		Logger:     &logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:       logger,
		RatePerMin:   cfg.RateLimitPerMin,
		AllowOrigins: cfg.CORSOrigins,
		Metrics:      svc.Metrics,
	})
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().Str("addr", server.Addr()).Str("store", cfg.StoreDriver).Msg("api: listening")
	if err := server.Run(ctx, cfg.HTTPIdleTimeout); err != nil {
		logger.Error().Err(err).Msg("api: server stopped with error")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := svc.Supervisor.Wait(drainCtx); err != nil {
		logger.Warn().Err(err).Interface("stats", svc.Supervisor.Stats()).Msg("api: background tasks still running")
	}
	logger.Info().Msg("api: stopped")
}
