package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"stylegen/internal/http/handlers"
	"stylegen/internal/metrics"
	"stylegen/internal/middleware"
)

// Options tunes the middleware stack.
type Options struct {
	Logger       zerolog.Logger
	RatePerMin   int
	AllowOrigins []string
	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Collector
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID(opts.Logger),
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowOrigins),
	)

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RatePerMin, time.Minute))

		r.Route("/v1/styles", func(r chi.Router) {
			r.Get("/", app.Styles)
			r.Get("/trending", app.TrendingStyles)
			r.Get("/prompt", app.StylePrompt)
			r.Post("/refresh", app.RefreshStyles)
		})

		r.Post("/v1/generate", app.Generate)
		r.Post("/v1/generate/result", app.GenerateResult)
		r.Get("/v1/background", app.Background)
	})

	return r
}
