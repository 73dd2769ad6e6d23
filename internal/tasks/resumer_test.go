package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"stylegen/internal/domain"
)

type scriptedPoller struct {
	states []domain.GenerationTask
	err    error
	calls  int
}

func (p *scriptedPoller) Poll(ctx context.Context, id string) (domain.GenerationTask, error) {
	if p.err != nil {
		return domain.GenerationTask{}, p.err
	}
	idx := min(p.calls, len(p.states)-1)
	p.calls++
	t := p.states[idx]
	t.ID = id
	return t, nil
}

func newTestResumer(p Poller, now time.Time, slept *[]time.Duration) *Resumer {
	r := NewResumer(p, nil)
	r.Now = func() time.Time { return now }
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return r
}

func TestResumeExpiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		age    time.Duration
		polled bool
	}{
		{name: "59 minutes", age: 59 * time.Minute, polled: true},
		{name: "61 minutes", age: 61 * time.Minute, polled: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &scriptedPoller{states: []domain.GenerationTask{{Status: domain.TaskStatusSucceeded, ResultURLs: []string{"https://cdn/a.png"}}}}
			var slept []time.Duration
			r := newTestResumer(p, now, &slept)
			_, err := r.Resume(context.Background(), domain.ResumableTaskContext{TaskID: "t1", CreatedAt: now.Add(-tc.age)})
			if tc.polled {
				if err != nil || p.calls != 1 {
					t.Fatalf("expected one poll, got calls=%d err=%v", p.calls, err)
				}
				return
			}
			if !errors.Is(err, domain.ErrTaskExpired) || p.calls != 0 {
				t.Fatalf("expected expiry without polling, got calls=%d err=%v", p.calls, err)
			}
		})
	}
}

func TestAwaitPollsEveryTwoSeconds(t *testing.T) {
	p := &scriptedPoller{states: []domain.GenerationTask{
		{Status: domain.TaskStatusRunning, Progress: 10},
		{Status: domain.TaskStatusRunning, Progress: 60},
		{Status: domain.TaskStatusSucceeded, ResultURLs: []string{"https://cdn/a.png"}},
	}}
	var slept []time.Duration
	var progress []int
	r := newTestResumer(p, time.Now(), &slept)
	r.OnProgress = func(task domain.GenerationTask) { progress = append(progress, task.Progress) }

	task, err := r.Await(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Await error: %v", err)
	}
	if task.Status != domain.TaskStatusSucceeded || len(task.ResultURLs) != 1 {
		t.Fatalf("unexpected task %+v", task)
	}
	if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
	if len(progress) != 2 || progress[1] != 60 {
		t.Fatalf("unexpected progress %v", progress)
	}
}

func TestAwaitFailure(t *testing.T) {
	p := &scriptedPoller{states: []domain.GenerationTask{{Status: domain.TaskStatusFailed, FailureReason: "input moderated"}}}
	var slept []time.Duration
	task, err := newTestResumer(p, time.Now(), &slept).Await(context.Background(), "t1")
	if !errors.Is(err, domain.ErrTaskFailed) || task.FailureReason != "input moderated" {
		t.Fatalf("unexpected result %+v, %v", task, err)
	}
}

func TestAwaitMaxAttempts(t *testing.T) {
	p := &scriptedPoller{states: []domain.GenerationTask{{Status: domain.TaskStatusRunning}}}
	var slept []time.Duration
	r := newTestResumer(p, time.Now(), &slept)
	r.MaxAttempts = 3
	if _, err := r.Await(context.Background(), "t1"); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if p.calls != 3 || len(slept) != 2 {
		t.Fatalf("calls=%d sleeps=%d", p.calls, len(slept))
	}
}

func TestAwaitPollError(t *testing.T) {
	p := &scriptedPoller{err: &domain.UpstreamError{Status: 503, Message: "down"}}
	var slept []time.Duration
	if _, err := newTestResumer(p, time.Now(), &slept).Await(context.Background(), "t1"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestAwaitCancelled(t *testing.T) {
	p := &scriptedPoller{states: []domain.GenerationTask{{Status: domain.TaskStatusRunning}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var slept []time.Duration
	if _, err := newTestResumer(p, time.Now(), &slept).Await(ctx, "t1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
