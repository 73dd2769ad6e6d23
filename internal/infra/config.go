package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STYLE_STORE.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoreDriver string
	RedisURL    string
	StoragePath string

	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamModel   string
	UpstreamTimeout time.Duration

	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	StyleCacheTTL    time.Duration
	TrendingCacheTTL time.Duration
	StyleMinItems    int
	StyleMaxItems    int
	HotTopicLimit    int
	HotFeeds         []string
	SynthConcurrency int
	SynthRatePerSec  float64
	RefreshInterval  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoreDriver: strings.ToLower(getEnv("STYLE_STORE", StoreBackendPostgres)),
		RedisURL:    os.Getenv("REDIS_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "https://api.grsai.com"),
		UpstreamAPIKey:  strings.TrimSpace(os.Getenv("UPSTREAM_API_KEY")),
		UpstreamModel:   getEnv("UPSTREAM_MODEL", "nano-banana"),
		UpstreamTimeout: time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 300)),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		StyleCacheTTL:    time.Minute * time.Duration(getEnvInt("STYLE_CACHE_TTL_MINUTES", 30)),
		TrendingCacheTTL: time.Minute * time.Duration(getEnvInt("TRENDING_CACHE_TTL_MINUTES", 120)),
		StyleMinItems:    getEnvInt("STYLE_MIN_ITEMS", 6),
		StyleMaxItems:    getEnvInt("STYLE_MAX_ITEMS", 10),
		HotTopicLimit:    getEnvInt("HOT_TOPIC_LIMIT", 50),
		HotFeeds:         splitList(os.Getenv("HOT_FEEDS")),
		SynthConcurrency: getEnvInt("SYNTH_CONCURRENCY", 0),
		SynthRatePerSec:  getEnvFloat("SYNTH_RATE_PER_SECOND", 2),
		RefreshInterval:  time.Minute * time.Duration(getEnvInt("STYLE_REFRESH_INTERVAL_MINUTES", 30)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.StoreDriver {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STYLE_STORE=%s", StoreBackendPostgres)
		}
	case StoreBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STYLE_STORE=%s", StoreBackendRedis)
		}
	case StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STYLE_STORE %q", cfg.StoreDriver)
	}

	if cfg.StyleMinItems <= 0 {
		cfg.StyleMinItems = 1
	}
	if cfg.StyleMaxItems < cfg.StyleMinItems {
		cfg.StyleMaxItems = cfg.StyleMinItems
	}
	if cfg.SynthConcurrency < 0 {
		cfg.SynthConcurrency = 0
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
