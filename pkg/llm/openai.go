package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// OpenAIGenerator talks to any OpenAI-compatible chat endpoint.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

var _ CodeGenerator = (*OpenAIGenerator)(nil)

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Endpoint    string // empty means the public API
	MaxTokens   int
	Temperature float32
}

func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.Named("llm.openai"),
	}, nil
}

func (g *OpenAIGenerator) GenerateCode(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindLLMUnavailable, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.KindLLMUnavailable, "empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Model() string { return g.model }
