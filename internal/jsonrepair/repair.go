// Package jsonrepair decodes JSON produced by language models and upstream
// providers that wrap, truncate, or decorate their payloads.
//
// Decoding runs four stages in a fixed order, each operating on the output of
// the previous one: strip markdown code fences, parse directly, extract the
// outermost matching bracket pair, strip trailing commas.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"strings"

	"stylegen/internal/domain"
)

// Decode parses raw into a T using the staged repair strategy. It returns an
// error wrapping domain.ErrParse when every stage fails.
func Decode[T any](raw string) (T, error) {
	var zero T
	text := trimCodeFence(raw)
	if text == "" {
		return zero, fmt.Errorf("%w: empty payload", domain.ErrParse)
	}

	var decoded T
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded, nil
	}

	fragment := extractOutermost(text)
	if fragment != "" {
		decoded = *new(T)
		if err := json.Unmarshal([]byte(fragment), &decoded); err == nil {
			return decoded, nil
		}
	} else {
		fragment = text
	}

	decoded = *new(T)
	if err := json.Unmarshal([]byte(stripTrailingCommas(fragment)), &decoded); err != nil {
		return zero, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return decoded, nil
}

// Valid reports whether raw can be decoded by Decode.
func Valid(raw string) bool {
	_, err := Decode[json.RawMessage](raw)
	return err == nil
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the info string (json, JSON, javascript...) up to the first newline.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		info := strings.TrimSpace(trimmed[:idx])
		if !strings.ContainsAny(info, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// extractOutermost returns the first balanced {...} or [...] span, honouring
// string literals. When the opening bracket is never closed it falls back to
// the span between the first opening and last closing bracket.
func extractOutermost(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return fallbackSpan(text, start)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return text[start : i+1]
			}
		}
	}
	return fallbackSpan(text, start)
}

func fallbackSpan(text string, start int) string {
	end := strings.LastIndexAny(text, "]}")
	if end < start {
		return ""
	}
	return text[start : end+1]
}

// stripTrailingCommas removes commas that directly precede a closing bracket,
// ignoring anything inside string literals.
func stripTrailingCommas(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
