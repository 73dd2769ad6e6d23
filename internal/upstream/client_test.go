package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"stylegen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestSendBuildsPayload(t *testing.T) {
	var captured Payload
	client := NewClient(Options{
		BaseURL: "https://draw.example.com/",
		APIKey:  "secret",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.String() != "https://draw.example.com/v1/draw/completions" {
				t.Errorf("unexpected url %s", r.URL)
			}
			if r.Header.Get("Authorization") != "Bearer secret" {
				t.Errorf("missing bearer token")
			}
			_ = json.NewDecoder(r.Body).Decode(&captured)
			return jsonResponse(http.StatusOK, `{"id":"t1"}`), nil
		})},
	})
	req := domain.GenerationRequest{Model: "nano-banana", Prompt: "p", ImageURLs: []string{"data:image/png;base64,AA"}, AspectRatio: "auto", ImageSize: "1K", WantsStream: true}
	resp, err := client.Send(context.Background(), PayloadFor(req))
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	resp.Body.Close()
	if captured.Model != "nano-banana" || !captured.Stream || captured.ImageSize != "1K" || len(captured.URLs) != 1 {
		t.Fatalf("unexpected payload %+v", captured)
	}
}

func TestSendMissingKey(t *testing.T) {
	client := NewClient(Options{BaseURL: "https://x"})
	if _, err := client.Send(context.Background(), Payload{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSendUpstreamError(t *testing.T) {
	client := NewClient(Options{
		BaseURL: "https://x",
		APIKey:  "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusPaymentRequired, `{"code":-1,"msg":"余额不足"}`), nil
		})},
	})
	_, err := client.Send(context.Background(), Payload{})
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstream.Status != http.StatusPaymentRequired || upstream.Message != "余额不足" {
		t.Fatalf("unexpected error %+v", upstream)
	}
}

func TestPoll(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   domain.TaskStatus
		progress int
		urls     int
		reason   string
	}{
		{name: "running", body: `{"id":"t1","status":"running","progress":35}`, status: domain.TaskStatusRunning, progress: 35},
		{name: "wrapped success", body: `{"code":0,"msg":"success","data":{"id":"t1","status":"succeeded","results":[{"url":"https://cdn/1.png"}]}}`, status: domain.TaskStatusSucceeded, progress: 100, urls: 1},
		{name: "failed", body: `{"id":"t1","status":"failed","failure_reason":"nsfw"}`, status: domain.TaskStatusFailed, reason: "nsfw"},
		{name: "failed without reason", body: `{"status":"error"}`, status: domain.TaskStatusFailed, reason: "generation failed"},
		{name: "unknown status", body: `{"status":"queued"}`, status: domain.TaskStatusRunning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sent map[string]string
			client := NewClient(Options{
				BaseURL: "https://x",
				APIKey:  "k",
				HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
					if !strings.HasSuffix(r.URL.Path, "/v1/draw/result") {
						t.Errorf("unexpected path %s", r.URL.Path)
					}
					_ = json.NewDecoder(r.Body).Decode(&sent)
					return jsonResponse(http.StatusOK, tc.body), nil
				})},
			})
			task, err := client.Poll(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Poll error: %v", err)
			}
			if sent["id"] != "t1" || task.ID != "t1" {
				t.Fatalf("id not round-tripped: sent=%v task=%q", sent, task.ID)
			}
			if task.Status != tc.status || task.Progress != tc.progress || len(task.ResultURLs) != tc.urls || task.FailureReason != tc.reason {
				t.Fatalf("unexpected task %+v", task)
			}
		})
	}
}

func TestPollMalformed(t *testing.T) {
	client := NewClient(Options{
		BaseURL: "https://x",
		APIKey:  "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `<html>`), nil
		})},
	})
	if _, err := client.Poll(context.Background(), "t1"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := client.Poll(context.Background(), " "); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}
