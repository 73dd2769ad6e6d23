package tasks

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

// envelope mirrors the API response wrapper.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Submitted is the data of a non-stream generate response.
type Submitted struct {
	ID       string          `json:"id"`
	ImageURL string          `json:"imageUrl"`
	Result   json.RawMessage `json:"result"`
}

// APIClient calls this service's own HTTP API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

// Generate submits a non-stream generation request. body is the dispatch
// JSON object.
func (c *APIClient) Generate(ctx context.Context, body any) (Submitted, error) {
	var out envelope[Submitted]
	if err := c.post(ctx, "/v1/generate", body, &out); err != nil {
		return Submitted{}, err
	}
	return out.Data, nil
}

// Poll implements Poller against POST /v1/generate/result.
func (c *APIClient) Poll(ctx context.Context, id string) (domain.GenerationTask, error) {
	var out envelope[WireTask]
	if err := c.post(ctx, "/v1/generate/result", map[string]string{"id": id}, &out); err != nil {
		return domain.GenerationTask{}, err
	}
	task := FromWire(out.Data)
	if task.ID == "" {
		task.ID = id
	}
	return task, nil
}

func (c *APIClient) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}
	var head envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &head); err != nil {
		return &domain.UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode >= 300 || head.Code != 0 {
		return &domain.UpstreamError{Status: resp.StatusCode, Message: head.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

var _ Poller = (*APIClient)(nil)
