package providers

import (
	"fmt"

	"github.com/dataeval/dingomark/pkg/config"
	anthropicprovider "github.com/dataeval/dingomark/pkg/providers/anthropic"
	"github.com/dataeval/dingomark/pkg/providers/openai_sdk"
)

// CreateProvider is the single entry point for constructing an LLMProvider
// from config. The returned provider is already concurrency-bounded.
func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	var p LLMProvider
	switch cfg.LLM.Provider {
	case "openai":
		p = openai_sdk.NewProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	case "anthropic":
		p = anthropicprovider.NewProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	default:
		return nil, &config.ConfigurationError{
			Field:  "llm.provider",
			Reason: fmt.Sprintf("unknown provider %q", cfg.LLM.Provider),
		}
	}
	return WithMaxConcurrent(p, cfg.LLM.MaxConcurrent), nil
}
