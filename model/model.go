package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mnemo/core"
)

// Provider identifiers accepted by Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config selects and parameterizes a model for one invocation. Zero-valued
// fields fall back to gateway defaults (API key, model name) or provider SDK
// defaults (retry budget, timeout).
type Config struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model,omitempty"`
	APIKey      string        `json:"-"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	MaxRetries  int           `json:"max_retries,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// WithTemperature returns a copy of the config with the temperature pinned.
func (c Config) WithTemperature(t float64) Config {
	c.Temperature = &t
	return c
}

// Request is the normalized input handed to a ChatModel.
type Request struct {
	Messages []core.Message
	Stream   bool
}

// Response is a partial or final chunk emitted by a ChatModel. Partial
// responses carry one token delta in Text; the final response carries the
// full accumulated text.
type Response struct {
	Partial      bool
	Text         string
	FinishReason string
}

// Info describes a ChatModel implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// ChatModel is the minimal provider contract: a single generation entry point
// emitting responses and errors over channels, closed on completion.
type ChatModel interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// Factory maps an invocation Config to a concrete ChatModel. It must reject
// unknown providers with core.UnsupportedProviderError before any network
// activity.
type Factory func(cfg Config) (ChatModel, error)

// MockChatModel is a lightweight in-memory ChatModel for tests and examples.
// Responses are keyed by the text of the last message in the request; inputs
// without a canned response echo a default.
type MockChatModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	calls     int
}

// NewMockChatModel constructs an empty mock.
func NewMockChatModel(name, provider string) *MockChatModel {
	return &MockChatModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input.
func (m *MockChatModel) AddResponse(input, response string) { m.responses[input] = response }

// Calls reports how many Generate invocations the mock has served.
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements ChatModel; streams rune-sized partials when requested,
// then the final full text.
func (m *MockChatModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		input := req.Messages[len(req.Messages)-1].Text
		full, ok := m.responses[input]
		if !ok {
			full = fmt.Sprintf("Mock response to: %s", input)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- Response{Partial: false, Text: full, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements ChatModel.
func (m *MockChatModel) Info() Info { return m.info }
