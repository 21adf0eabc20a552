package llm

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/retry"
)

// Gateway wraps a provider with retry, output cleaning, and a
// deterministic fallback so the engine always receives runnable code.
type Gateway struct {
	provider CodeGenerator
	fallback *MockGenerator
	retry    retry.Config
	logger   *zap.Logger
}

func NewGateway(provider CodeGenerator, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		provider: provider,
		fallback: NewMock(),
		retry:    *retry.DefaultConfig(),
		logger:   logger.Named("llm.gateway"),
	}
}

// Generate asks the provider for code, retrying transient failures.
// When every attempt fails it degrades to the deterministic skeleton
// rather than surfacing a provider outage to the caller.
func (g *Gateway) Generate(ctx context.Context, system, user string) (string, error) {
	raw, err := retry.DoWithResult(ctx, &g.retry, func() (string, error) {
		return g.provider.GenerateCode(ctx, system, user)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Wrap(apperrors.KindTimeout, "generation cancelled", err)
		}
		g.logger.Warn("provider unavailable, using fallback skeleton",
			zap.String("model", g.provider.Model()),
			zap.Error(err))
		raw, _ = g.fallback.GenerateCode(ctx, system, user)
	}

	code := CleanOutput(raw)
	if strings.TrimSpace(code) == "" {
		return "", apperrors.New(apperrors.KindLLMUnavailable, "provider returned no code")
	}
	return code, nil
}

// Model exposes the wrapped provider's model name.
func (g *Gateway) Model() string { return g.provider.Model() }

var fencePattern = regexp.MustCompile("(?s)```(?:go|golang)?\\s*\\n(.*?)```")

// CleanOutput extracts runnable code from raw model output: fenced
// blocks win, otherwise leading prose is dropped up to the first line
// that reads as code.
func CleanOutput(raw string) string {
	if match := fencePattern.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}

	lines := strings.Split(raw, "\n")
	start := 0
	for i, line := range lines {
		if looksLikeCode(strings.TrimSpace(line)) {
			start = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func looksLikeCode(line string) bool {
	if line == "" {
		return false
	}
	return strings.Contains(line, ":=") ||
		strings.HasPrefix(line, "import ") ||
		strings.HasPrefix(line, "for ") ||
		strings.HasPrefix(line, "if ") ||
		strings.HasPrefix(line, "var ") ||
		strings.HasPrefix(line, "func ")
}
