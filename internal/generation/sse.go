package generation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// DoneFrame terminates every stream sent to clients.
var DoneFrame = []byte("data: [DONE]\n\n")

// FormatFrame encodes payload as one SSE data frame.
func FormatFrame(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return rawFrame(raw), nil
}

func rawFrame(raw []byte) []byte {
	var compact bytes.Buffer
	if json.Compact(&compact, raw) == nil {
		raw = compact.Bytes()
	}
	out := make([]byte, 0, len(raw)+8)
	out = append(out, "data: "...)
	out = append(out, raw...)
	return append(out, '\n', '\n')
}

// ParseFrames decodes every "data:" line of an SSE transcript. The [DONE]
// marker and lines that are not a single JSON value are skipped. Numbers are
// kept as json.Number so large integers survive re-encoding.
func ParseFrames(text string) []any {
	var out []any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if body == "" || body == doneMarker {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			continue
		}
		if err := dec.Decode(new(any)); err != io.EOF {
			continue
		}
		out = append(out, v)
	}
	return out
}

// WriteStreamHeaders commits the event-stream response headers.
func WriteStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
