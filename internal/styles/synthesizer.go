package styles

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
	"stylegen/internal/llm"
)

const synthSystemPrompt = "你是一名 AI 绘画提示词专家。直接输出一段完整的中文描述性提示词，不要使用 JSON、标题或引号。"

// Synthesizer writes the descriptive prompt of one style.
type Synthesizer struct {
	client  llm.CompletionClient
	limiter *rate.Limiter
	logger  *infra.Logger
}

// NewSynthesizer paces calls to perSecond; perSecond <= 0 disables pacing.
func NewSynthesizer(client llm.CompletionClient, perSecond float64, logger *infra.Logger) *Synthesizer {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	return &Synthesizer{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  infra.Component(logger, "prompt-synthesizer"),
	}
}

// Synthesize returns the prompt text, or false when the call failed or the
// model answered with nothing usable. Failures are logged only.
func (s *Synthesizer) Synthesize(ctx context.Context, style domain.Style) (string, bool) {
	log := s.logger.With().Str("title", style.Title).Logger()
	if s.client == nil {
		log.Warn().Msg("no completion client configured")
		return "", false
	}
	if err := s.limiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("synthesis not started")
		return "", false
	}
	text, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      synthSystemPrompt,
		User:        synthPrompt(style),
		Temperature: 0.8,
	})
	if err != nil {
		log.Warn().Err(err).Msg("prompt synthesis failed")
		return "", false
	}
	prompt := cleanPrompt(text)
	if prompt == "" {
		log.Warn().Msg("prompt synthesis returned empty text")
		return "", false
	}
	return prompt, true
}

func synthPrompt(style domain.Style) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "为图像风格「%s」写一段用于图生图的提示词，描述画面质感、色彩、光线和构图，约 80 字。", style.Title)
	if len(style.Source) > 0 {
		fmt.Fprintf(sb, "该风格灵感来自：%s。", strings.Join(style.Source, "、"))
	}
	return sb.String()
}

func cleanPrompt(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx >= 0 {
			t = t[idx+1:]
		}
		if idx := strings.LastIndex(t, "```"); idx >= 0 {
			t = t[:idx]
		}
	}
	t = strings.TrimSpace(t)
	t = strings.Trim(t, "\"“”「」")
	return strings.TrimSpace(t)
}
