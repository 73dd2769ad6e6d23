// Package bootstrap wires the shared components of the api and refresher
// processes from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"stylegen/internal/background"
	"stylegen/internal/backup"
	"stylegen/internal/domain"
	"stylegen/internal/hotsearch"
	"stylegen/internal/infra"
	"stylegen/internal/infra/credentials"
	"stylegen/internal/llm"
	"stylegen/internal/metrics"
	"stylegen/internal/storage"
	"stylegen/internal/store"
	"stylegen/internal/styles"
	"stylegen/internal/upstream"
)

// Services is the component graph shared by every process.
type Services struct {
	Config     *infra.Config
	Logger     *infra.Logger
	Supervisor *background.Supervisor
	Cache      *styles.Cache
	Store      domain.StyleBatchRepository
	Pipeline   *styles.Pipeline
	Reader     *styles.Reader
	Synth      *styles.Synthesizer
	Upstream   *upstream.Client
	Files      *storage.FileStore
	Sink       *backup.Sink
	Metrics    *metrics.Collector

	closers []func()
}

// New opens the durable store and builds every component.
func New(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Services, error) {
	log := infra.Component(logger, "bootstrap")
	s := &Services{Config: cfg, Logger: logger, Metrics: metrics.NewCollector("stylegen")}
	s.Supervisor = background.New(logger,
		background.WithTaskTimeout(10*time.Minute),
		background.WithObserver(s.Metrics.ObserveTask),
	)

	var creds *credentials.Store
	switch cfg.StoreDriver {
	case infra.StoreBackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		runner := infra.NewSQLRunner(pool, *infra.Component(logger, "sql"))
		pg := store.NewPostgresBatchStore(runner)
		if err := pg.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		s.Store = pg
		creds = credentials.NewStore(runner)
	case infra.StoreBackendRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Store = store.NewRedisBatchStore(client)
	default:
		s.Store = store.NewMemoryBatchStore()
	}

	resolve := func(provider, env string) string {
		v, err := creds.Resolve(ctx, provider, env)
		if err != nil {
			log.Warn().Err(err).Str("provider", provider).Msg("credential lookup failed")
		}
		return v
	}

	completion, err := llm.NewFromConfig(llm.ProviderConfig{
		Primary:       cfg.LLMProvider,
		OpenAIAPIKey:  resolve(credentials.ProviderOpenAI, cfg.OpenAIAPIKey),
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  resolve(credentials.ProviderGemini, cfg.GeminiAPIKey),
		GeminiModel:   cfg.GeminiModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("no language model configured; style refresh will fail")
		missing := err
		completion = llm.ClientFunc(func(context.Context, llm.CompletionRequest) (string, error) {
			return "", missing
		})
	}

	s.Cache = styles.NewCache(
		styles.WithTTL(domain.CatalogueStyles, cfg.StyleCacheTTL),
		styles.WithTTL(domain.CatalogueTrending, cfg.TrendingCacheTTL),
	)
	s.Synth = styles.NewSynthesizer(completion, cfg.SynthRatePerSec, logger)
	s.Pipeline = styles.NewPipeline(styles.PipelineOptions{
		Topics:      hotsearch.NewAggregator(cfg.HotTopicLimit, logger, FeedSources(cfg.HotFeeds, nil)...),
		Selector:    styles.NewSelector(completion, cfg.StyleMinItems, cfg.StyleMaxItems, logger),
		Synthesizer: s.Synth,
		Cache:       s.Cache,
		Store:       s.Store,
		Supervisor:  s.Supervisor,
		Concurrency: cfg.SynthConcurrency,
		Logger:      logger,
	})
	s.Reader = styles.NewReader(s.Cache, s.Store, s.Pipeline, logger)

	s.Upstream = upstream.NewClient(upstream.Options{
		BaseURL: cfg.UpstreamBaseURL,
		APIKey:  resolve(credentials.ProviderUpstream, cfg.UpstreamAPIKey),
	})

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		log.Warn().Err(err).Str("path", storagePath).Msg("artifact backup disabled")
	} else {
		s.Files = files
	}
	s.Sink = backup.NewSink(backup.Options{
		Store:      writerOrNil(s.Files),
		Supervisor: s.Supervisor,
		Logger:     logger,
	})
	return s, nil
}

// writerOrNil keeps a nil *FileStore from becoming a non-nil interface.
func writerOrNil(f *storage.FileStore) backup.Writer {
	if f == nil {
		return nil
	}
	return f
}

// FeedSources turns HOT_FEEDS entries into sources. An entry is either
// name=url or a bare url, in which case the host names the source.
func FeedSources(entries []string, client *http.Client) []hotsearch.Source {
	out := make([]hotsearch.Source, 0, len(entries))
	for _, entry := range entries {
		name, url, ok := strings.Cut(entry, "=")
		if !ok || strings.Contains(name, "/") {
			name, url = "", entry
		}
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if name = strings.TrimSpace(name); name == "" {
			name = hostOf(url)
		}
		out = append(out, hotsearch.NewFeedSource(name, url, client))
	}
	return out
}

func hostOf(u string) string {
	rest := u
	if _, after, ok := strings.Cut(u, "://"); ok {
		rest = after
	}
	host, _, _ := strings.Cut(rest, "/")
	return host
}

// Close releases the store connections. Drain the supervisor first.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
