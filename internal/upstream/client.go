// Package upstream talks to the asynchronous image generation provider.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stylegen/internal/domain"
)

const (
	drawPath   = "/v1/draw/completions"
	resultPath = "/v1/draw/result"
)

// Payload is the provider request body.
type Payload struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	URLs        []string `json:"urls"`
	AspectRatio string   `json:"aspectRatio"`
	ImageSize   string   `json:"imageSize"`
	Stream      bool     `json:"stream"`
}

// PayloadFor maps a domain request onto the provider body.
func PayloadFor(req domain.GenerationRequest) Payload {
	urls := req.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	return Payload{
		Model:       req.Model,
		Prompt:      req.Prompt,
		URLs:        urls,
		AspectRatio: req.AspectRatio,
		ImageSize:   req.ImageSize,
		Stream:      req.WantsStream,
	}
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client sends draw requests and polls their results.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		// No overall timeout: streamed replies stay open for minutes. Callers
		// bound requests through ctx.
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:  strings.TrimSpace(opts.APIKey),
		http:    client,
	}
}

func (c *Client) ready() error {
	if c.apiKey == "" {
		return domain.MissingCredential("UPSTREAM_API_KEY")
	}
	if c.baseURL == "" {
		return domain.MissingCredential("UPSTREAM_BASE_URL")
	}
	return nil
}

// Send posts the draw request and returns the open response. A non-2xx reply
// is drained and returned as *domain.UpstreamError. The caller owns the body.
func (c *Client) Send(ctx context.Context, payload Payload) (*http.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, drawPath, payload, payload.Stream)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}
	return resp, nil
}

// Poll fetches the current state of task id.
func (c *Client) Poll(ctx context.Context, id string) (domain.GenerationTask, error) {
	if err := c.ready(); err != nil {
		return domain.GenerationTask{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.GenerationTask{}, fmt.Errorf("%w: task id is required", domain.ErrInvalidRequest)
	}
	resp, err := c.post(ctx, resultPath, map[string]string{"id": id}, false)
	if err != nil {
		return domain.GenerationTask{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.GenerationTask{}, upstreamError(resp)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.GenerationTask{}, fmt.Errorf("upstream: read result: %w", err)
	}
	task, err := ParseTask(raw)
	if err != nil {
		return domain.GenerationTask{}, err
	}
	if task.ID == "" {
		task.ID = id
	}
	return task, nil
}

func (c *Client) post(ctx context.Context, path string, body any, stream bool) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("upstream: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream, application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s after %s: %w", path, time.Since(start).Round(time.Millisecond), err)
	}
	return resp, nil
}

func upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var env struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil {
		switch {
		case env.Message != "":
			msg = env.Message
		case env.Msg != "":
			msg = env.Msg
		case env.Error != nil:
			if s, ok := env.Error.(string); ok {
				msg = s
			} else if m, ok := env.Error.(map[string]any); ok {
				if s, ok := m["message"].(string); ok {
					msg = s
				}
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.UpstreamError{Status: resp.StatusCode, Message: msg}
}
