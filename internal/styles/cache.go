// Package styles curates style catalogues and serves them through a layered
// cache.
package styles

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stylegen/internal/domain"
)

// Default catalogue TTLs.
const (
	DefaultStylesTTL   = 30 * time.Minute
	DefaultTrendingTTL = 2 * time.Hour
)

// Cache is the in-process catalogue cache. Entries never expire from the
// backing map; freshness is decided per read from the entry timestamp so an
// expired entry stays available as a stale fallback.
//
// The cache is process-local. Several instances each hold their own copy and
// only converge through the durable store on a miss.
type Cache struct {
	store      *gocache.Cache
	ttls       map[domain.Catalogue]time.Duration
	defaultTTL time.Duration
	normalizer Normalizer
	now        func() time.Time

	// mu serializes read-modify-write of a catalogue entry.
	mu sync.Mutex
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithTTL sets the freshness window of one catalogue.
func WithTTL(cat domain.Catalogue, ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttls[cat] = ttl
		}
	}
}

// WithNormalizer replaces the title normalizer used for fuzzy matching.
func WithNormalizer(n Normalizer) CacheOption {
	return func(c *Cache) { c.normalizer = n }
}

// NewCache builds an empty cache with DefaultStylesTTL and DefaultTrendingTTL.
// Entries never expire from storage; Stale keeps serving them after the TTL.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
		ttls: map[domain.Catalogue]time.Duration{
			domain.CatalogueStyles:   DefaultStylesTTL,
			domain.CatalogueTrending: DefaultTrendingTTL,
		},
		defaultTTL: DefaultStylesTTL,
		normalizer: defaultNormalizer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalizer exposes the title normalizer shared with callers.
func (c *Cache) Normalizer() Normalizer { return c.normalizer }

// TTL reports the freshness window of a catalogue.
func (c *Cache) TTL(cat domain.Catalogue) time.Duration {
	if ttl, ok := c.ttls[cat]; ok {
		return ttl
	}
	return c.defaultTTL
}

func (c *Cache) entry(cat domain.Catalogue) (domain.CacheEntry[[]domain.Style], bool) {
	v, ok := c.store.Get(string(cat))
	if !ok {
		return domain.CacheEntry[[]domain.Style]{}, false
	}
	e, ok := v.(domain.CacheEntry[[]domain.Style])
	return e, ok
}

// Get returns the catalogue when it is younger than its TTL.
func (c *Cache) Get(cat domain.Catalogue) ([]domain.Style, bool) {
	e, ok := c.entry(cat)
	if !ok || !e.Fresh(c.now(), c.TTL(cat)) {
		return nil, false
	}
	return domain.CloneStyles(e.Data), true
}

// Stale returns the catalogue regardless of age, with its timestamp.
func (c *Cache) Stale(cat domain.Catalogue) ([]domain.Style, time.Time, bool) {
	e, ok := c.entry(cat)
	if !ok {
		return nil, time.Time{}, false
	}
	return domain.CloneStyles(e.Data), e.Timestamp, true
}

// Set replaces the catalogue and starts its freshness window.
func (c *Cache) Set(cat domain.Catalogue, items []domain.Style) {
	data := domain.CloneStyles(items)
	if data == nil {
		data = []domain.Style{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(string(cat), domain.CacheEntry[[]domain.Style]{Data: data, Timestamp: c.now()}, gocache.NoExpiration)
}

// UpsertOne replaces the entry whose normalized title matches style.Title or
// appends it. The catalogue timestamp is left untouched; a catalogue that was
// never Set is created with a zero timestamp so it is not reported fresh.
func (c *Cache) UpsertOne(cat domain.Catalogue, style domain.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, _ := c.entry(cat)
	data := domain.CloneStyles(e.Data)
	key := c.normalizer.Normalize(style.Title)
	replaced := false
	for i := range data {
		if c.normalizer.Normalize(data[i].Title) == key {
			incoming := style.Clone()
			incoming.Title = data[i].Title
			if len(incoming.Source) == 0 {
				incoming.Source = data[i].Source
			}
			data[i] = incoming
			replaced = true
			break
		}
	}
	if !replaced {
		data = append(data, style.Clone())
	}
	c.store.Set(string(cat), domain.CacheEntry[[]domain.Style]{Data: data, Timestamp: e.Timestamp}, gocache.NoExpiration)
}

// Lookup finds a cached style of cat by normalized title, ignoring freshness.
func (c *Cache) Lookup(cat domain.Catalogue, title string) (domain.Style, bool) {
	e, ok := c.entry(cat)
	if !ok {
		return domain.Style{}, false
	}
	key := c.normalizer.Normalize(title)
	for _, s := range e.Data {
		if c.normalizer.Normalize(s.Title) == key {
			return s.Clone(), true
		}
	}
	return domain.Style{}, false
}

// GetPromptFor resolves a prompt from the preset table, then from the cached
// catalogues. Empty prompts do not count as a match.
func (c *Cache) GetPromptFor(title string) (string, bool) {
	if p, ok := LookupDefault(c.normalizer, title); ok {
		return p.Prompt, true
	}
	for _, cat := range []domain.Catalogue{domain.CatalogueStyles, domain.CatalogueTrending} {
		if s, ok := c.Lookup(cat, title); ok && s.Prompt != "" {
			return s.Prompt, true
		}
	}
	return "", false
}
