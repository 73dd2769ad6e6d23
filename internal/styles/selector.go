package styles

import (
	"context"
	"fmt"
	"strings"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
	"stylegen/internal/jsonrepair"
	"stylegen/internal/llm"
)

const selectorSystemPrompt = "你是一名视觉风格策展人。你只输出 JSON，不输出任何解释。"

// Selector curates hot topics into a bounded list of style candidates with a
// single completion call.
type Selector struct {
	client     llm.CompletionClient
	minItems   int
	maxItems   int
	normalizer Normalizer
	logger     *infra.Logger
}

// NewSelector builds a Selector. minItems defaults to 6 and maxItems is raised
// to at least minItems.
func NewSelector(client llm.CompletionClient, minItems, maxItems int, logger *infra.Logger) *Selector {
	if minItems <= 0 {
		minItems = 6
	}
	if maxItems < minItems {
		maxItems = minItems
	}
	return &Selector{
		client:     client,
		minItems:   minItems,
		maxItems:   maxItems,
		normalizer: defaultNormalizer,
		logger:     infra.Component(logger, "style-selector"),
	}
}

// Select returns candidates with empty prompts. An LLM failure is returned as
// an error; an unparsable or empty answer yields an empty list.
func (s *Selector) Select(ctx context.Context, titles []string) ([]domain.Style, error) {
	if len(titles) == 0 {
		return []domain.Style{}, nil
	}
	if s.client == nil {
		return nil, domain.MissingCredential("LLM provider")
	}
	raw, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      selectorSystemPrompt,
		User:        s.buildPrompt(titles),
		JSON:        true,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("select styles: %w", err)
	}

	payload, err := jsonrepair.Decode[any](raw)
	if err != nil {
		s.logger.Warn().Err(err).Int("length", len(raw)).Msg("selector response not parsable")
		return []domain.Style{}, nil
	}
	items := s.collect(payload)
	s.logger.Debug().Int("topics", len(titles)).Int("selected", len(items)).Msg("styles selected")
	return items, nil
}

func (s *Selector) buildPrompt(titles []string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "以下是当前的热门话题，请从中提炼 %d 到 %d 个适合用作图像风格的主题名称（每个不超过 8 个字）。", s.minItems, s.maxItems)
	sb.WriteString(`严格按此 JSON 返回：{"items":[{"title":string,"source":string[]}]}，source 列出启发该风格的原始话题。`)
	sb.WriteString("\n热门话题：\n")
	for i, t := range titles {
		fmt.Fprintf(sb, "%d. %s\n", i+1, t)
	}
	return sb.String()
}

func (s *Selector) collect(payload any) []domain.Style {
	list := candidateList(payload)
	out := make([]domain.Style, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		style, ok := candidate(raw)
		if !ok {
			continue
		}
		key := s.normalizer.Normalize(style.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, style)
		if len(out) == s.maxItems {
			break
		}
	}
	return out
}

func candidateList(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"items", "styles", "titles", "themes"} {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
		if data, ok := v["data"]; ok {
			return candidateList(data)
		}
	}
	return nil
}

func candidate(raw any) (domain.Style, bool) {
	switch v := raw.(type) {
	case string:
		title := strings.TrimSpace(v)
		return domain.Style{Title: title, Source: []string{}}, title != ""
	case map[string]any:
		title := firstString(v, "title", "name", "style")
		if title == "" {
			return domain.Style{}, false
		}
		return domain.Style{Title: title, Source: stringList(v["source"])}, true
	}
	return domain.Style{}, false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
