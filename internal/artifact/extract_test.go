package artifact

import (
	"encoding/json"
	"slices"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestURLsKnownShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "top level url", raw: `{"url":"https://cdn/a.png"}`, want: []string{"https://cdn/a.png"}},
		{name: "results list", raw: `{"id":"t1","status":"succeeded","results":[{"url":"https://cdn/a.png"},{"url":"https://cdn/b.png"}]}`, want: []string{"https://cdn/a.png", "https://cdn/b.png"}},
		{name: "data wrapper", raw: `{"code":0,"data":{"results":[{"url":"https://cdn/a.png"}]}}`, want: []string{"https://cdn/a.png"}},
		{name: "data url", raw: `{"data":{"url":"https://cdn/a.png"}}`, want: []string{"https://cdn/a.png"}},
		{name: "data list", raw: `{"data":[{"url":"https://cdn/a.png"},{"url":"https://cdn/a.png"}]}`, want: []string{"https://cdn/a.png"}},
		{name: "image field", raw: `{"image":"data:image/png;base64,AAAA"}`, want: []string{"data:image/png;base64,AAAA"}},
		{name: "progress frame", raw: `{"id":"t1","status":"running","progress":40}`, want: nil},
		{name: "non url strings", raw: `{"url":"pending","results":["nope"]}`, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := URLs(decode(t, tc.raw))
			if !slices.Equal(got, tc.want) {
				t.Fatalf("URLs() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTaskID(t *testing.T) {
	if got := TaskID(decode(t, `{"code":0,"data":{"id":"abc"}}`)); got != "abc" {
		t.Fatalf("TaskID() = %q", got)
	}
	if got := TaskID(decode(t, `{"taskId":"xyz"}`)); got != "xyz" {
		t.Fatalf("TaskID() = %q", got)
	}
	if got := TaskID(decode(t, `[1,2]`)); got != "" {
		t.Fatalf("TaskID() = %q", got)
	}
}

func TestFirst(t *testing.T) {
	if First(nil) != "" {
		t.Fatal("nil payload has no artifact")
	}
	if First(decode(t, `{"results":[{"url":"https://x/1.png"}]}`)) != "https://x/1.png" {
		t.Fatal("unexpected first url")
	}
}
