package llm

import (
	"fmt"
	"os"
)

// ProviderFactory creates providers.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default models.
var DefaultModels = map[string]string{
	"xai":       "grok-3",
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-20250514",
}

var registry = map[string]ProviderFactory{
	"xai": func(cfg ProviderConfig) (Provider, error) {
		return NewXAIProvider(cfg)
	},
	"openai": func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	},
	"anthropic": func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	},
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: xai, openai, anthropic)", name)
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// Detect picks a provider from environment credentials.
// Priority: XAI_API_KEY > OPENAI_API_KEY > ANTHROPIC_API_KEY.
// Returns ok=false when no credential is configured; extraction then
// degrades to empty results rather than failing.
func Detect() (provider string, apiKey string, ok bool) {
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		return "xai", key, true
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return "openai", key, true
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return "anthropic", key, true
	}
	return "", "", false
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	if model, ok := DefaultModels[provider]; ok {
		return model
	}
	return ""
}
