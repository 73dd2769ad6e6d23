package hotsearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func topics(titles ...string) []HotTopic {
	out := make([]HotTopic, len(titles))
	for i, title := range titles {
		out[i] = HotTopic{Rank: i + 1, Title: title}
	}
	return out
}

func TestMergeDedupesPreservingOrder(t *testing.T) {
	got := Merge(0,
		slices.Values(topics("复古港风", "赛博朋克", " ")),
		slices.Values(topics("赛博朋克", "国风", "复古港风")),
	)
	want := []string{"复古港风", "赛博朋克", "国风"}
	if !slices.Equal(got, want) {
		t.Fatalf("Merge() = %v, want %v", got, want)
	}
}

func TestMergeTruncates(t *testing.T) {
	got := Merge(2, slices.Values(topics("a", "b", "c")), slices.Values(topics("d")))
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("Merge() = %v", got)
	}
}

func TestCollectToleratesFailingSources(t *testing.T) {
	ok := NewSourceFunc("weibo", func(ctx context.Context) ([]HotTopic, error) {
		return topics("a", "b"), nil
	})
	broken := NewSourceFunc("zhihu", func(ctx context.Context) ([]HotTopic, error) {
		return nil, errors.New("timeout")
	})
	second := NewSourceFunc("douyin", func(ctx context.Context) ([]HotTopic, error) {
		return topics("b", "c"), nil
	})
	agg := NewAggregator(10, nil, ok, broken, second)
	got := agg.Collect(context.Background())
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("Collect() = %v", got)
	}
}

func TestCollectAllFailing(t *testing.T) {
	broken := NewSourceFunc("x", func(ctx context.Context) ([]HotTopic, error) {
		return nil, errors.New("down")
	})
	agg := NewAggregator(0, nil, broken, broken)
	if got := agg.Collect(context.Background()); len(got) != 0 {
		t.Fatalf("Collect() = %v, want empty", got)
	}
}

func TestFeedSourceDecodesShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"rank":1,"title":"国风","hot":12000},{"rank":2,"title":"赛博朋克","hot":"1.2万"}]`},
		{name: "data wrapper", body: `{"code":200,"data":[{"rank":1,"title":"国风","hot":12000},{"rank":2,"title":"赛博朋克","hot":"1.2万"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			got, err := NewFeedSource("feed", ts.URL, nil).Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch error: %v", err)
			}
			if len(got) != 2 || got[0].Hot != "12000" || got[1].Hot != "1.2万" {
				t.Fatalf("unexpected topics: %#v", got)
			}
		})
	}
}

func TestFeedSourceUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	if _, err := NewFeedSource("feed", ts.URL, nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
