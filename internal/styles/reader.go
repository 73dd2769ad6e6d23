package styles

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
)

// DefaultRefreshTimeout bounds a shared synchronous refresh once it no longer
// follows the caller that started it.
const DefaultRefreshTimeout = 2 * time.Minute

// Refresher runs one synchronous catalogue refresh.
type Refresher interface {
	Run(ctx context.Context, cat domain.Catalogue) ([]domain.Style, error)
}

// Reader serves catalogues through cache, durable store, synchronous refresh
// and finally stale data. It never returns an error.
type Reader struct {
	cache     *Cache
	store     domain.StyleBatchRepository
	refresher Refresher
	group     singleflight.Group
	timeout   time.Duration
	logger    *infra.Logger
}

// NewReader builds a Reader. store and refresher may be nil; shared refreshes
// are bounded by DefaultRefreshTimeout.
func NewReader(cache *Cache, store domain.StyleBatchRepository, refresher Refresher, logger *infra.Logger) *Reader {
	return &Reader{
		cache:     cache,
		store:     store,
		refresher: refresher,
		timeout:   DefaultRefreshTimeout,
		logger:    infra.Component(logger, "style-reader"),
	}
}

// Styles returns the current catalogue, or an empty non-nil list.
func (r *Reader) Styles(ctx context.Context, cat domain.Catalogue) []domain.Style {
	if items, ok := r.cache.Get(cat); ok {
		return items
	}
	log := r.logger.With().Str("catalogue", string(cat)).Logger()

	if r.store != nil {
		batch, err := r.store.LatestBatch(ctx, cat)
		switch {
		case err == nil && len(batch.Items) > 0:
			r.cache.Set(cat, batch.Items)
			return domain.CloneStyles(batch.Items)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			log.Warn().Err(err).Msg("durable store read failed")
		}
	}

	if r.refresher != nil {
		if items, ok := r.refresh(ctx, cat, log); ok {
			return items
		}
	}

	if items, ts, ok := r.cache.Stale(cat); ok && len(items) > 0 {
		log.Info().Time("cached_at", ts).Msg("serving stale catalogue")
		return items
	}
	return []domain.Style{}
}

// refresh joins or starts the shared refresh for cat. The shared run is
// detached from every caller so one disconnect does not fail the others; each
// caller stops waiting when its own context ends.
func (r *Reader) refresh(ctx context.Context, cat domain.Catalogue, log zerolog.Logger) ([]domain.Style, bool) {
	ch := r.group.DoChan(string(cat), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.refresher.Run(runCtx, cat)
	})
	select {
	case <-ctx.Done():
		log.Debug().Err(ctx.Err()).Msg("caller left before refresh finished")
		return nil, false
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Err(res.Err).Msg("synchronous refresh failed")
			return nil, false
		}
		items, _ := res.Val.([]domain.Style)
		if len(items) == 0 {
			return nil, false
		}
		log.Debug().Bool("shared", res.Shared).Int("styles", len(items)).Msg("served refreshed catalogue")
		return domain.CloneStyles(items), true
	}
}

// Listing returns the catalogue as shown to clients. The styles catalogue is
// prefixed with the editorial presets; generated entries that collide with a
// preset title are dropped.
func (r *Reader) Listing(ctx context.Context, cat domain.Catalogue) []domain.Style {
	items := r.Styles(ctx, cat)
	if cat != domain.CatalogueStyles {
		return items
	}
	n := r.cache.Normalizer()
	out := Defaults()
	seen := make(map[string]struct{}, len(out)+len(items))
	for _, p := range out {
		seen[n.Normalize(p.Title)] = struct{}{}
	}
	for _, it := range items {
		key := n.Normalize(it.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
