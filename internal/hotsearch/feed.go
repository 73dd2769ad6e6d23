package hotsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stylegen/internal/domain"
)

// FeedSource reads a pre-parsed hot list from a JSON endpoint. The body is
// either a bare array of topics or an object carrying them under "data".
type FeedSource struct {
	name   string
	url    string
	client *http.Client
}

// NewFeedSource builds a FeedSource. A nil client gets a 10 second timeout.
func NewFeedSource(name, url string, client *http.Client) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FeedSource{name: name, url: url, client: client}
}

func (f *FeedSource) Name() string { return f.name }

func (f *FeedSource) Fetch(ctx context.Context) ([]HotTopic, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("hotsearch %s: build request: %w", f.name, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hotsearch %s: http request: %w", f.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("hotsearch %s: read response: %w", f.name, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var topics []HotTopic
	if err := json.Unmarshal(raw, &topics); err == nil {
		return topics, nil
	}
	var wrapped struct {
		Data []HotTopic `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("hotsearch %s: %w: %v", f.name, domain.ErrParse, err)
	}
	return wrapped.Data, nil
}

var _ Source = (*FeedSource)(nil)
