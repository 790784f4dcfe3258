// Package config loads process-wide settings for mnemo from a .env file and
// the environment. Values here are defaults only: every model.Config field
// can still be overridden per request.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"mnemo/core"
)

// OpenAIConfig holds credentials and the default model for the OpenAI provider.
type OpenAIConfig struct {
	APIKey string `validate:"required"`
	Model  string `validate:"required"`
}

// AnthropicConfig holds credentials and the default model for the Anthropic
// provider. Optional: only validated when an API key is present.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// DatabaseConfig points at the relational/vector store backing the reference
// postgres implementation.
type DatabaseConfig struct {
	DSN string
}

// WorkflowConfig points at the default workflow endpoint actions call out to.
type WorkflowConfig struct {
	BaseURL  string
	APIToken string
}

// Config is the full configuration surface consumed by the pipeline.
type Config struct {
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Database  DatabaseConfig
	Workflow  WorkflowConfig

	// HistoryLimit bounds how many prior turns are replayed as context.
	HistoryLimit int `validate:"gt=0"`
	// RecallLimit bounds candidates per vector search, and therefore the
	// number of relevance-filter model calls per request.
	RecallLimit int `validate:"gt=0"`
	// InactiveDays is the threshold for conversation cleanup.
	InactiveDays int `validate:"gt=0"`
}

// Load reads .env (when present), then the process environment, applies
// defaults and validates the result. Missing required settings surface as a
// core.ConfigurationError.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Workflow: WorkflowConfig{
			BaseURL:  os.Getenv("WORKFLOW_URL"),
			APIToken: os.Getenv("WORKFLOW_API_TOKEN"),
		},
		HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 10),
		RecallLimit:  getEnvAsInt("RECALL_LIMIT", 5),
		InactiveDays: getEnvAsInt("INACTIVE_DAYS", 15),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration without reloading it. Exposed so tests
// and programmatic construction can reuse the same rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &core.ConfigurationError{
				Field: errs[0].Namespace(),
				Err:   fmt.Errorf("failed %q validation", errs[0].Tag()),
			}
		}
		return &core.ConfigurationError{Field: "config", Err: err}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}
