package llm

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

var _ CodeGenerator = (*AnthropicGenerator)(nil)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

func NewAnthropic(cfg AnthropicConfig, logger *zap.Logger) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AnthropicGenerator{
		client:      anthropic.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.Named("llm.anthropic"),
	}, nil
}

func (g *AnthropicGenerator) GenerateCode(ctx context.Context, system, user string) (string, error) {
	temp := g.temperature
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(g.model),
		System:      system,
		MaxTokens:   g.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(user),
		},
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindLLMUnavailable, "messages request failed", err)
	}
	text := resp.GetFirstContentText()
	if text == "" {
		return "", apperrors.New(apperrors.KindLLMUnavailable, "empty completion")
	}
	return text, nil
}

func (g *AnthropicGenerator) Model() string { return g.model }
