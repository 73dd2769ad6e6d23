package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig carries the credentials of every supported backend.
type ProviderConfig struct {
	Primary string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// NewFromConfig builds the primary provider followed by any other configured
// provider as fallback. It fails only when no provider has credentials.
func NewFromConfig(cfg ProviderConfig) (CompletionClient, error) {
	order := []string{"openai", "gemini"}
	if strings.EqualFold(cfg.Primary, "gemini") {
		order = []string{"gemini", "openai"}
	}

	var chain Fallback
	var firstErr error
	for _, name := range order {
		var (
			client CompletionClient
			err    error
		)
		switch name {
		case "openai":
			client, err = NewOpenAIClient(OpenAIOptions{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL, MaxRetries: 1})
		case "gemini":
			client, err = NewGeminiClient(GeminiOptions{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL})
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		chain = append(chain, client)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("llm: no provider available: %w", firstErr)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}
