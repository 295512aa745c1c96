package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go/option"

	"supporttriage/internal/config"
	"supporttriage/internal/httpx"
)

// NewChainFromConfig builds the provider chain for cfg. "none" (or "auto"
// without credentials) yields an empty chain, which selects the heuristic
// path. "auto" lists every provider that has credentials, Anthropic first.
func NewChainFromConfig(cfg config.Config) (*Chain, error) {
	var names []string
	switch cfg.LLMProvider {
	case config.ProviderAuto:
		if cfg.AnthropicAPIKey != "" {
			names = append(names, config.ProviderAnthropic)
		}
		if cfg.OpenAIAPIKey != "" {
			names = append(names, config.ProviderOpenAI)
		}
	case config.ProviderNone, "":
	default:
		names = []string{cfg.LLMProvider}
	}

	var providers []Provider
	for _, name := range names {
		p, err := newProvider(cfg, name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewChain(providers...), nil
}

func newProvider(cfg config.Config, name string) (Provider, error) {
	switch name {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key required")
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.LLMModel,
			option.WithHTTPClient(httpx.ExternalHTTPClient())), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai API key required")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.LLMModel)
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaHost, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}
