package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsFromEnvironment(t *testing.T) {
	// No config.yaml in the test working directory, so defaults apply.
	cfg, err := Load("1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 30, cfg.Engine.CodeTimeoutSeconds)
	assert.Equal(t, 25, cfg.Engine.MaxResultRows)
	assert.Equal(t, "uploads", cfg.Uploads.BaseDir)
	assert.Equal(t, int64(100), cfg.Uploads.MaxFileSizeMB)
	assert.Equal(t, "query_cache", cfg.Feedback.QueryCacheDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_MAX_RETRIES", "5")
	t.Setenv("LLM_MODEL_TYPE", "openai")
	t.Setenv("UPLOADS_BASE_DIR", "/tmp/data")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, "openai", cfg.LLM.Type)
	assert.Equal(t, "/tmp/data", cfg.Uploads.BaseDir)
}

func TestLoad_RejectsNegativeRetries(t *testing.T) {
	t.Setenv("ENGINE_MAX_RETRIES", "-1")

	_, err := Load("dev")
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  LLMConfig
		want string
	}{
		{
			name: "generic key wins",
			cfg:  LLMConfig{Type: "openai", APIKey: "generic", OpenAIAPIKey: "specific"},
			want: "generic",
		},
		{
			name: "openai specific",
			cfg:  LLMConfig{Type: "openai", OpenAIAPIKey: "oai"},
			want: "oai",
		},
		{
			name: "anthropic specific",
			cfg:  LLMConfig{Type: "anthropic", AnthropicAPIKey: "ant"},
			want: "ant",
		},
		{
			name: "mock has none",
			cfg:  LLMConfig{Type: ""},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolveAPIKey())
		})
	}
}
