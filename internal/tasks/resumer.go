package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
)

// PollInterval is the fixed delay between polls of a running task.
const PollInterval = 2 * time.Second

// ErrAttemptsExhausted is returned when MaxAttempts polls saw no terminal state.
var ErrAttemptsExhausted = errors.New("tasks: poll attempts exhausted")

// Poller fetches the current state of a task.
type Poller interface {
	Poll(ctx context.Context, id string) (domain.GenerationTask, error)
}

// Resumer polls a task by id until it settles.
type Resumer struct {
	Poller   Poller
	Interval time.Duration
	// MaxAttempts caps polls; zero polls until the task settles or ctx ends.
	MaxAttempts int
	// OnProgress observes every running state.
	OnProgress func(domain.GenerationTask)
	Now        func() time.Time
	Sleep      func(ctx context.Context, d time.Duration) error
	Logger     *infra.Logger
}

func NewResumer(p Poller, logger *infra.Logger) *Resumer {
	return &Resumer{Poller: p, Interval: PollInterval, Logger: logger}
}

// Resume polls tc's task. An expired context is rejected without polling. A
// failed task returns the task and an error wrapping domain.ErrTaskFailed.
func (r *Resumer) Resume(ctx context.Context, tc domain.ResumableTaskContext) (domain.GenerationTask, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if tc.Expired(now()) {
		return domain.GenerationTask{}, fmt.Errorf("%w: %s created %s", domain.ErrTaskExpired, tc.TaskID, tc.CreatedAt.Format(time.RFC3339))
	}
	return r.Await(ctx, tc.TaskID)
}

// Await polls id until it settles.
func (r *Resumer) Await(ctx context.Context, id string) (domain.GenerationTask, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = PollInterval
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := infra.LoggerOrNop(r.Logger).With().Str("task_id", id).Logger()

	for attempt := 1; ; attempt++ {
		task, err := r.Poller.Poll(ctx, id)
		if err != nil {
			return domain.GenerationTask{}, fmt.Errorf("poll %s: %w", id, err)
		}
		switch task.Status {
		case domain.TaskStatusSucceeded:
			log.Info().Int("polls", attempt).Int("results", len(task.ResultURLs)).Msg("task succeeded")
			return task, nil
		case domain.TaskStatusFailed:
			log.Warn().Int("polls", attempt).Str("reason", task.FailureReason).Msg("task failed")
			return task, fmt.Errorf("%w: %s", domain.ErrTaskFailed, task.FailureReason)
		}
		if r.OnProgress != nil {
			r.OnProgress(task)
		}
		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			return task, ErrAttemptsExhausted
		}
		if err := sleep(ctx, interval); err != nil {
			return task, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
