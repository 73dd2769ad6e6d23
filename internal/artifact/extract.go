// Package artifact finds result images inside upstream payloads whose nesting
// differs between providers and between streaming and polling replies.
package artifact

import "strings"

// maxDepth bounds how far wrappers such as {"data":{"data":...}} are followed.
const maxDepth = 3

var (
	urlKeys     = []string{"url", "imageUrl", "image_url", "image"}
	listKeys    = []string{"results", "images", "urls"}
	wrapperKeys = []string{"data", "result", "output"}
)

// URLs returns every distinct artifact URL found in payload, in document
// order. Only http(s) and data: URLs count.
func URLs(payload any) []string {
	var out []string
	seen := map[string]struct{}{}
	collect(payload, 0, func(u string) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	})
	return out
}

// First returns the first artifact URL of payload, or "".
func First(payload any) string {
	if urls := URLs(payload); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

// TaskID returns the upstream task id carried by payload, or "".
func TaskID(payload any) string {
	m, ok := payload.(map[string]any)
	for depth := 0; ok && depth <= maxDepth; depth++ {
		for _, key := range []string{"id", "taskId", "task_id"} {
			if s, isStr := m[key].(string); isStr && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		m, ok = m["data"].(map[string]any)
	}
	return ""
}

func collect(v any, depth int, emit func(string)) {
	if depth > maxDepth {
		return
	}
	switch t := v.(type) {
	case string:
		if isArtifactURL(t) {
			emit(strings.TrimSpace(t))
		}
	case []any:
		for _, item := range t {
			collect(item, depth+1, emit)
		}
	case map[string]any:
		for _, key := range urlKeys {
			if s, ok := t[key].(string); ok && isArtifactURL(s) {
				emit(strings.TrimSpace(s))
			}
		}
		for _, key := range listKeys {
			if list, ok := t[key].([]any); ok {
				collect(list, depth+1, emit)
			}
		}
		for _, key := range wrapperKeys {
			if inner, ok := t[key]; ok {
				collect(inner, depth+1, emit)
			}
		}
	}
}

func isArtifactURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "data:image/")
}
