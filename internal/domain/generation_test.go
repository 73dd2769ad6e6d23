package domain

import (
	"errors"
	"testing"
	"time"
)

func TestResumableTaskContextExpired(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: time.Minute, want: false},
		{name: "59 minutes", age: 59 * time.Minute, want: false},
		{name: "exactly one hour", age: time.Hour, want: false},
		{name: "61 minutes", age: 61 * time.Minute, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := ResumableTaskContext{TaskID: "t1", CreatedAt: now.Add(-tc.age)}
			if got := c.Expired(now); got != tc.want {
				t.Fatalf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerationTaskTerminal(t *testing.T) {
	if (GenerationTask{Status: TaskStatusRunning}).Terminal() {
		t.Fatal("running task must not be terminal")
	}
	for _, status := range []TaskStatus{TaskStatusSucceeded, TaskStatusFailed} {
		if !(GenerationTask{Status: status}).Terminal() {
			t.Fatalf("%s task should be terminal", status)
		}
	}
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	var err error = &UpstreamError{Status: 502, Message: "bad gateway"}
	if !errors.Is(err, ErrUpstream) {
		t.Fatal("UpstreamError should match ErrUpstream")
	}
	var target *UpstreamError
	if !errors.As(err, &target) || target.Status != 502 {
		t.Fatalf("errors.As failed: %#v", target)
	}
}

func TestStyleCloneDoesNotAlias(t *testing.T) {
	orig := []Style{{Title: "a", Source: []string{"weibo"}}}
	cp := CloneStyles(orig)
	cp[0].Source[0] = "zhihu"
	if orig[0].Source[0] != "weibo" {
		t.Fatalf("clone aliased source slice: %v", orig[0].Source)
	}
}
