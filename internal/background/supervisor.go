// Package background runs work that outlives the request which triggered it.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stylegen/internal/infra"
)

// Stats is a snapshot of supervisor counters.
type Stats struct {
	Started   int64  `json:"started"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
	Running   int64  `json:"running"`
	LastError string `json:"lastError,omitempty"`
	LastTask  string `json:"lastFailedTask,omitempty"`
}

// Supervisor tracks detached tasks. The zero value is not usable; call New.
type Supervisor struct {
	base     context.Context
	logger   *infra.Logger
	timeout  time.Duration
	observer Observer

	wg    sync.WaitGroup
	mu    sync.Mutex
	stats Stats
}

// Observer is told about every finished task.
type Observer func(task string, err error, took time.Duration)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTaskTimeout bounds every task's context. Zero leaves tasks unbounded.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.timeout = d }
}

// WithObserver registers fn for task outcomes.
func WithObserver(fn Observer) Option {
	return func(s *Supervisor) { s.observer = fn }
}

func New(logger *infra.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		base:   context.Background(),
		logger: infra.Component(logger, "background"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Go runs fn in its own goroutine with a context detached from parent's
// cancellation. Values carried by parent stay visible to fn.
func (s *Supervisor) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	if parent == nil {
		parent = s.base
	}
	ctx := context.WithoutCancel(parent)

	s.mu.Lock()
	s.stats.Started++
	s.stats.Running++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()
		err := s.run(ctx, fn)
		s.finish(name, err, time.Since(start))
	}()
}

func (s *Supervisor) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (s *Supervisor) finish(name string, err error, took time.Duration) {
	s.mu.Lock()
	s.stats.Running--
	if err != nil {
		s.stats.Failed++
		s.stats.LastError = err.Error()
		s.stats.LastTask = name
	} else {
		s.stats.Succeeded++
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(name, err, took)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("task", name).Str("status", "failed").Dur("duration", took).Msg("background task finished")
		return
	}
	s.logger.Debug().Str("task", name).Str("status", "succeeded").Dur("duration", took).Msg("background task finished")
}

// Stats returns the current counters.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ErrDrainTimeout is returned by Wait when ctx ends before tasks finish.
var ErrDrainTimeout = errors.New("background: tasks still running")

// Wait blocks until every started task returned or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDrainTimeout, ctx.Err())
	}
}
