package domain

import "time"

// Catalogue names a cached style collection.
type Catalogue string

const (
	CatalogueStyles   Catalogue = "styles"
	CatalogueTrending Catalogue = "trending"
)

// Valid reports whether c is a known catalogue.
func (c Catalogue) Valid() bool {
	switch c {
	case CatalogueStyles, CatalogueTrending:
		return true
	default:
		return false
	}
}

// Style is one curated preset. Prompt may be empty while synthesis is pending.
type Style struct {
	Title  string   `json:"title"`
	Prompt string   `json:"prompt"`
	Source []string `json:"source,omitempty"`
}

// Clone returns a deep copy so callers can never alias cache-owned slices.
func (s Style) Clone() Style {
	out := s
	if s.Source != nil {
		out.Source = append([]string(nil), s.Source...)
	}
	return out
}

// CloneStyles deep-copies a style list.
func CloneStyles(items []Style) []Style {
	if items == nil {
		return nil
	}
	out := make([]Style, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// StyleBatch is one complete generation of a catalogue. The most recently
// created batch of a catalogue is authoritative for reads.
type StyleBatch struct {
	BatchID   string
	Catalogue Catalogue
	Items     []Style
	CreatedAt time.Time
}

// CacheEntry wraps cached data with the instant it was stored.
type CacheEntry[T any] struct {
	Data      T
	Timestamp time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CacheEntry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}
