// Package hotsearch merges trending titles from several hot-search feeds.
package hotsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// HotTopic is one entry of a hot-search list.
type HotTopic struct {
	Rank     int        `json:"rank"`
	Title    string     `json:"title"`
	Link     string     `json:"link,omitempty"`
	Hot      FlexString `json:"hot,omitempty"`
	IconType string     `json:"iconType,omitempty"`
}

// Source yields the current hot-search list of one site.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]HotTopic, error)
}

type funcSource struct {
	name string
	fn   func(ctx context.Context) ([]HotTopic, error)
}

// NewSourceFunc adapts a plain function into a Source.
func NewSourceFunc(name string, fn func(ctx context.Context) ([]HotTopic, error)) Source {
	return funcSource{name: name, fn: fn}
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Fetch(ctx context.Context) ([]HotTopic, error) {
	return s.fn(ctx)
}

// FlexString accepts either a JSON string or a JSON number. Feeds disagree on
// whether heat values are "1.2万" or 12000.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
