package styles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stylegen/internal/background"
	"stylegen/internal/domain"
	"stylegen/internal/infra"
)

// Stage is the progress of the latest pipeline run of a catalogue.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageAggregating  Stage = "aggregating"
	StageSelecting    Stage = "selecting"
	StageSeeded       Stage = "seeded"
	StageSynthesizing Stage = "synthesizing"
	StagePersisted    Stage = "persisted"
	StageFailed       Stage = "failed"
)

// TopicCollector yields the merged hot-topic titles.
type TopicCollector interface {
	Collect(ctx context.Context) []string
}

// PipelineOptions wires a Pipeline.
type PipelineOptions struct {
	Topics      TopicCollector
	Selector    *Selector
	Synthesizer *Synthesizer
	Cache       *Cache
	Store       domain.StyleBatchRepository
	Supervisor  *background.Supervisor
	// Concurrency caps parallel synthesis calls; zero starts every call at once.
	Concurrency int
	Logger      *infra.Logger
	Now         func() time.Time
}

// Pipeline runs aggregate, select, seed, then fills prompts and persists the
// batch in the background.
type Pipeline struct {
	topics      TopicCollector
	selector    *Selector
	synth       *Synthesizer
	cache       *Cache
	store       domain.StyleBatchRepository
	supervisor  *background.Supervisor
	concurrency int
	logger      *infra.Logger
	now         func() time.Time

	mu     sync.Mutex
	stages map[domain.Catalogue]Stage
}

// NewPipeline builds a Pipeline. A nil Supervisor gets a private one and a
// non-positive Concurrency leaves synthesis unbounded.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Concurrency < 0 {
		opts.Concurrency = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Supervisor == nil {
		opts.Supervisor = background.New(opts.Logger)
	}
	return &Pipeline{
		topics:      opts.Topics,
		selector:    opts.Selector,
		synth:       opts.Synthesizer,
		cache:       opts.Cache,
		store:       opts.Store,
		supervisor:  opts.Supervisor,
		concurrency: opts.Concurrency,
		logger:      infra.Component(opts.Logger, "style-pipeline"),
		now:         opts.Now,
		stages:      make(map[domain.Catalogue]Stage),
	}
}

// Stage reports the last observed stage of cat.
func (p *Pipeline) Stage(cat domain.Catalogue) Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stages[cat]; ok {
		return s
	}
	return StageIdle
}

// Stages returns a copy of every catalogue's stage.
func (p *Pipeline) Stages() map[domain.Catalogue]Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[domain.Catalogue]Stage, len(p.stages))
	for k, v := range p.stages {
		out[k] = v
	}
	return out
}

func (p *Pipeline) setStage(cat domain.Catalogue, s Stage) {
	p.mu.Lock()
	p.stages[cat] = s
	p.mu.Unlock()
}

// Run seeds the cache with freshly selected styles and returns them with empty
// prompts. Prompt synthesis and persistence continue on the supervisor after
// Run returns. A selection error leaves the cache untouched.
func (p *Pipeline) Run(ctx context.Context, cat domain.Catalogue) ([]domain.Style, error) {
	log := p.logger.With().Str("catalogue", string(cat)).Logger()

	p.setStage(cat, StageAggregating)
	titles := p.topics.Collect(ctx)

	p.setStage(cat, StageSelecting)
	items, err := p.selector.Select(ctx, titles)
	if err != nil {
		p.setStage(cat, StageFailed)
		log.Error().Err(err).Msg("style selection failed")
		return nil, err
	}
	if len(items) == 0 {
		p.setStage(cat, StageIdle)
		log.Info().Int("topics", len(titles)).Msg("no styles selected")
		return []domain.Style{}, nil
	}
	for i := range items {
		items[i].Prompt = ""
	}

	p.cache.Set(cat, items)
	p.setStage(cat, StageSeeded)
	log.Info().Int("styles", len(items)).Msg("catalogue seeded")

	batch := domain.CloneStyles(items)
	p.supervisor.Go(ctx, "style-fill:"+string(cat), func(bg context.Context) error {
		return p.fillAndPersist(bg, cat, batch)
	})
	return domain.CloneStyles(items), nil
}

func (p *Pipeline) fillAndPersist(ctx context.Context, cat domain.Catalogue, items []domain.Style) error {
	p.setStage(cat, StageSynthesizing)

	var g errgroup.Group
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i := range items {
		g.Go(func() error {
			prompt, ok := p.synth.Synthesize(ctx, items[i])
			if !ok {
				return nil
			}
			items[i].Prompt = prompt
			p.cache.UpsertOne(cat, items[i])
			return nil
		})
	}
	_ = g.Wait()

	id, err := uuid.NewV7()
	if err != nil {
		p.setStage(cat, StageFailed)
		return fmt.Errorf("batch id: %w", err)
	}
	batch := domain.StyleBatch{
		BatchID:   id.String(),
		Catalogue: cat,
		Items:     items,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.SaveBatch(ctx, batch); err != nil {
		p.setStage(cat, StageFailed)
		return fmt.Errorf("persist %s batch: %w", cat, err)
	}
	p.setStage(cat, StagePersisted)

	filled := 0
	for _, it := range items {
		if it.Prompt != "" {
			filled++
		}
	}
	p.logger.Info().
		Str("catalogue", string(cat)).
		Str("batch_id", batch.BatchID).
		Int("styles", len(items)).
		Int("filled", filled).
		Msg("style batch persisted")
	return nil
}
