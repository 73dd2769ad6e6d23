// Package generation turns client generation requests into upstream calls and
// shapes the upstream reply into what the client asked for.
package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"stylegen/internal/domain"
	"stylegen/internal/infra"
	"stylegen/internal/styles"
)

// IdentityPrefix precedes every prompt sent upstream and cannot be overridden.
const IdentityPrefix = "严格保持原图中人物的面部特征、五官比例、发型与身份不变，不要替换或美化成其他人。"

// Request is the client dispatch body.
type Request struct {
	Image       string `json:"image"`
	RefImage    string `json:"refImage,omitempty"`
	Style       string `json:"style,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	OutputSize  string `json:"outputSize,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Stream      bool   `json:"stream,omitempty"`
}

// PromptSource says where the style text of a request came from.
type PromptSource string

const (
	SourcePreset    PromptSource = "preset"
	SourceCatalogue PromptSource = "catalogue"
	SourceOnDemand  PromptSource = "on_demand"
	SourceFallback  PromptSource = "fallback"
	SourceUser      PromptSource = "user"
)

// Dispatcher resolves style prompts and builds upstream requests.
type Dispatcher struct {
	cache  *styles.Cache
	synth  *styles.Synthesizer
	model  string
	logger *infra.Logger
}

func NewDispatcher(cache *styles.Cache, synth *styles.Synthesizer, model string, logger *infra.Logger) *Dispatcher {
	if model == "" {
		model = "nano-banana"
	}
	return &Dispatcher{cache: cache, synth: synth, model: model, logger: infra.Component(logger, "dispatcher")}
}

// ResolvePrompt returns the style text for title: preset, then cached
// catalogue, then a one-off synthesis that is cached, then a literal fallback.
func (d *Dispatcher) ResolvePrompt(ctx context.Context, title string) (string, PromptSource) {
	n := d.cache.Normalizer()
	if p, ok := styles.LookupDefault(n, title); ok {
		return p.Prompt, SourcePreset
	}
	if p, ok := d.cache.GetPromptFor(title); ok {
		return p, SourceCatalogue
	}
	if d.synth != nil {
		style := domain.Style{Title: strings.TrimSpace(title), Source: []string{}}
		if p, ok := d.synth.Synthesize(ctx, style); ok {
			cat := domain.CatalogueStyles
			if _, found := d.cache.Lookup(domain.CatalogueTrending, title); found {
				cat = domain.CatalogueTrending
			}
			style.Prompt = p
			d.cache.UpsertOne(cat, style)
			return p, SourceOnDemand
		}
	}
	return fmt.Sprintf("将这张照片转换为「%s」风格，保持原有构图与主体不变，画面细节丰富。", strings.TrimSpace(title)), SourceFallback
}

// Build validates req and produces the upstream request.
func (d *Dispatcher) Build(ctx context.Context, req Request) (domain.GenerationRequest, error) {
	if strings.TrimSpace(req.Image) == "" {
		return domain.GenerationRequest{}, fmt.Errorf("%w: image is required", domain.ErrInvalidRequest)
	}
	styleTitle := strings.TrimSpace(req.Style)
	userPrompt := strings.TrimSpace(req.Prompt)
	if styleTitle == "" && userPrompt == "" {
		return domain.GenerationRequest{}, fmt.Errorf("%w: style or prompt is required", domain.ErrInvalidRequest)
	}
	size, err := imageSize(req.OutputSize)
	if err != nil {
		return domain.GenerationRequest{}, err
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "image/png"
	}
	urls := []string{imageURL(req.Image, mimeType)}
	if strings.TrimSpace(req.RefImage) != "" {
		urls = append(urls, imageURL(req.RefImage, mimeType))
	}

	var parts []string
	source := SourceUser
	if styleTitle != "" {
		var text string
		text, source = d.ResolvePrompt(ctx, styleTitle)
		parts = append(parts, text)
	}
	if userPrompt != "" {
		if styleTitle != "" {
			parts = append(parts, "补充要求："+userPrompt)
		} else {
			parts = append(parts, userPrompt)
		}
	}

	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = "auto"
	}
	d.logger.Debug().Str("style", styleTitle).Str("prompt_source", string(source)).Str("size", size).Msg("generation request built")

	return domain.GenerationRequest{
		Model:       d.model,
		Prompt:      IdentityPrefix + "\n" + strings.Join(parts, "\n"),
		ImageURLs:   urls,
		AspectRatio: aspect,
		ImageSize:   size,
		WantsStream: req.Stream,
	}, nil
}

func imageSize(v string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "1K":
		return "1K", nil
	case "2K":
		return "2K", nil
	default:
		return "", fmt.Errorf("%w: outputSize must be 1K or 2K", domain.ErrInvalidRequest)
	}
}

// imageURL turns raw base64 into a data URL; URLs pass through.
func imageURL(image, mimeType string) string {
	image = strings.TrimSpace(image)
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return image
	}
	if _, err := base64.StdEncoding.DecodeString(image); err != nil {
		if raw, rerr := base64.RawStdEncoding.DecodeString(image); rerr == nil {
			image = base64.StdEncoding.EncodeToString(raw)
		}
	}
	return "data:" + mimeType + ";base64," + image
}
