// Package config loads service configuration from config.yaml with
// environment variable overrides. Secrets (API keys) are env-only.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tabiq-engine.
// Environment variables always override YAML values; secret fields are
// tagged yaml:"-" so they can never be committed in a config file.
type Config struct {
	// Server
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // set at load time from the build

	Uploads  UploadsConfig  `yaml:"uploads"`
	Engine   EngineConfig   `yaml:"engine"`
	LLM      LLMConfig      `yaml:"llm"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// UploadsConfig controls on-disk storage for uploaded files.
type UploadsConfig struct {
	// BaseDir is the root under which each upload gets its own directory.
	BaseDir string `yaml:"base_dir" env:"UPLOADS_BASE_DIR" env-default:"uploads"`
	// MaxFileSizeMB rejects larger multipart uploads.
	MaxFileSizeMB int64 `yaml:"max_file_size_mb" env:"UPLOADS_MAX_FILE_SIZE_MB" env-default:"100"`
}

// EngineConfig controls the per-query state machine.
type EngineConfig struct {
	// MaxRetries bounds rephrase-and-retry cycles for one question.
	MaxRetries int `yaml:"max_retries" env:"ENGINE_MAX_RETRIES" env-default:"3"`
	// CodeTimeoutSeconds is the wall-clock deadline for one sandboxed execution.
	CodeTimeoutSeconds int `yaml:"code_timeout_seconds" env:"ENGINE_CODE_TIMEOUT_SECONDS" env-default:"30"`
	// LLMTimeoutSeconds is the deadline for one provider completion.
	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds" env:"ENGINE_LLM_TIMEOUT_SECONDS" env-default:"60"`
	// MaxResultRows caps table rows returned over HTTP.
	MaxResultRows int `yaml:"max_result_rows" env:"ENGINE_MAX_RESULT_ROWS" env-default:"25"`
	// StdoutCapBytes truncates captured stdout from sandboxed code.
	StdoutCapBytes int `yaml:"stdout_cap_bytes" env:"ENGINE_STDOUT_CAP_BYTES" env-default:"16384"`
	// ProcessIsolation runs SQL-free snippets in a child process instead
	// of the in-process interpreter.
	ProcessIsolation bool `yaml:"process_isolation" env:"ENGINE_PROCESS_ISOLATION" env-default:"false"`
}

// LLMConfig selects and parameterizes the code-generation provider.
// When no provider is configured the deterministic mock is used.
type LLMConfig struct {
	// Type is the provider kind: "openai", "anthropic", or "" / "mock".
	Type string `yaml:"type" env:"LLM_MODEL_TYPE" env-default:""`
	// Model is the provider model name, e.g. "gpt-4o-mini".
	Model string `yaml:"model" env:"LLM_MODEL_NAME" env-default:""`
	// Endpoint overrides the provider base URL (for OpenAI-compatible servers).
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	// MaxTokens is the completion budget per request.
	MaxTokens int `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1500"`
	// Temperature is pinned low; code generation should be near-deterministic.
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`

	// Secrets - environment only.
	APIKey          string `yaml:"-" env:"LLM_API_KEY"`
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
}

// ResolveAPIKey returns the configured key for the selected provider,
// preferring the generic LLM_API_KEY over provider-specific variables.
func (c *LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Type {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// FeedbackConfig controls the persistent feedback and query caches.
type FeedbackConfig struct {
	// QueryCacheDir holds successful_queries.json.
	QueryCacheDir string `yaml:"query_cache_dir" env:"FEEDBACK_QUERY_CACHE_DIR" env-default:"query_cache"`
	// UserFeedbackDir holds user_feedback.json.
	UserFeedbackDir string `yaml:"user_feedback_dir" env:"FEEDBACK_USER_DIR" env-default:"user_feedback"`
	// MaxAgeDays drives periodic cleanup of stale records.
	MaxAgeDays int `yaml:"max_age_days" env:"FEEDBACK_MAX_AGE_DAYS" env-default:"90"`
}

// Load reads configuration from config.yaml (if present) with environment
// overrides. Without a config file the environment alone is used, so the
// binary runs with defaults out of the box.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if cfg.Engine.MaxRetries < 0 {
		return nil, fmt.Errorf("engine.max_retries must be >= 0")
	}
	return cfg, nil
}
