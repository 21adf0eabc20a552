package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/config"
)

// FromConfig builds the configured provider. A provider that needs an
// API key but has none degrades to the deterministic mock so local
// setups work out of the box.
func FromConfig(cfg config.LLMConfig, logger *zap.Logger) (CodeGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Type) {
	case "", "mock":
		return NewMock(), nil

	case "openai", "openai-compatible":
		key := cfg.ResolveAPIKey()
		if key == "" && cfg.Endpoint == "" {
			logger.Warn("no API key configured, using mock provider")
			return NewMock(), nil
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:      key,
			Model:       cfg.Model,
			Endpoint:    cfg.Endpoint,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
		}, logger)

	case "anthropic":
		key := cfg.ResolveAPIKey()
		if key == "" {
			logger.Warn("no API key configured, using mock provider")
			return NewMock(), nil
		}
		return NewAnthropic(AnthropicConfig{
			APIKey:      key,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
		}, logger)

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Type)
	}
}
