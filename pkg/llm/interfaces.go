// Package llm generates analysis code from natural-language questions
// through interchangeable providers: OpenAI-compatible endpoints,
// Anthropic, and a deterministic offline generator.
package llm

import "context"

// CodeGenerator produces an executable snippet for a prompt pair.
type CodeGenerator interface {
	// GenerateCode returns the raw model output for the prompts. The
	// gateway strips fences and prose afterwards.
	GenerateCode(ctx context.Context, system, user string) (string, error)

	// Model identifies the underlying model for logging.
	Model() string
}
