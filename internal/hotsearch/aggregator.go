package hotsearch

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"stylegen/internal/infra"
)

// DefaultLimit caps the merged title list.
const DefaultLimit = 50

// Merge consumes each sequence once, in order, and returns the distinct titles
// in first-seen order, truncated to limit. Blank titles are skipped.
func Merge(limit int, seqs ...iter.Seq[HotTopic]) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	seen := make(map[string]struct{})
	titles := make([]string, 0, limit)
	for _, seq := range seqs {
		for topic := range seq {
			title := strings.TrimSpace(topic.Title)
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			titles = append(titles, title)
			if len(titles) == limit {
				return titles
			}
		}
	}
	return titles
}

// Aggregator fetches every configured source and merges what succeeded.
type Aggregator struct {
	sources []Source
	limit   int
	logger  *infra.Logger
}

// NewAggregator builds an Aggregator. limit <= 0 selects DefaultLimit.
func NewAggregator(limit int, logger *infra.Logger, sources ...Source) *Aggregator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Aggregator{sources: sources, limit: limit, logger: infra.Component(logger, "hotsearch")}
}

// Collect fetches all sources concurrently. A failing source contributes
// nothing; results keep the configured source order.
func (a *Aggregator) Collect(ctx context.Context) []string {
	results := make([][]HotTopic, len(a.sources))
	var mu sync.Mutex
	failed := 0

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			topics, err := src.Fetch(ctx)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				a.logger.Warn().Err(err).Str("source", src.Name()).Msg("hot source failed")
				return nil
			}
			results[i] = topics
			return nil
		})
	}
	_ = g.Wait()

	seqs := make([]iter.Seq[HotTopic], 0, len(results))
	for _, topics := range results {
		seqs = append(seqs, slices.Values(topics))
	}
	titles := Merge(a.limit, seqs...)
	a.logger.Debug().
		Int("sources", len(a.sources)).
		Int("failed", failed).
		Int("titles", len(titles)).
		Msg("hot topics collected")
	return titles
}
