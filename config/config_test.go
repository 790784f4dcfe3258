package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/core"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("RECALL_LIMIT", "")
	t.Setenv("INACTIVE_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Anthropic.Model)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 5, cfg.RecallLimit)
	assert.Equal(t, 15, cfg.InactiveDays)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("HISTORY_LIMIT", "4")
	t.Setenv("WORKFLOW_URL", "https://hooks.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 4, cfg.HistoryLimit)
	assert.Equal(t, "https://hooks.example.com", cfg.Workflow.BaseURL)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Field, "APIKey")
}

func TestValidate_Limits(t *testing.T) {
	cfg := &Config{
		OpenAI:       OpenAIConfig{APIKey: "k", Model: "m"},
		HistoryLimit: 0,
		RecallLimit:  5,
		InactiveDays: 15,
	}
	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Field, "HistoryLimit")
}
