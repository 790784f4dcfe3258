package model

import (
	"context"
	"fmt"
	"strings"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/prompt"
)

// Persister receives completed conversational exchanges for storage. The
// conversation store implements it; persistence failures must be handled by
// the implementation, never returned to the generation path.
type Persister interface {
	Persist(ctx context.Context, conversationID, question, answer string) error
}

// Interaction carries the optional per-call context of a conversational
// invocation: where streamed tokens go and which conversation the exchange
// belongs to. A nil Interaction (or empty ConversationID) disables
// persistence; a nil OnToken discards token deltas.
type Interaction struct {
	ConversationID string
	OnToken        func(token string)
}

// StructuredCall describes a structured-output invocation: the prompt
// template to load, the variables to inject and the Go shape the response
// must decode to (used to generate format instructions).
type StructuredCall struct {
	Template  string
	Vars      map[string]string
	Prototype any
}

// Options configure a Gateway.
type Options struct {
	// Factory maps configs to provider adapters. Required; see
	// model/providers.Default for the standard switch.
	Factory Factory
	// Prompts resolves structured-call templates.
	Prompts *prompt.Registry
	// DefaultAPIKeys and DefaultModels fill empty Config fields per
	// provider, typically sourced from process configuration.
	DefaultAPIKeys map[string]string
	DefaultModels  map[string]string
	// Logger receives invocation diagnostics.
	Logger logging.Logger
}

// Gateway is the uniform entry point for invoking a language model. Both
// modes resolve the provider through the same factory, so an unsupported
// provider fails identically (and before any network call) everywhere.
type Gateway struct {
	factory     Factory
	prompts     *prompt.Registry
	defaultKeys map[string]string
	defaultMods map[string]string
	persister   Persister
	logger      logging.Logger
}

// NewGateway constructs a Gateway. The conversation store is attached
// afterwards via BindPersister because the store itself needs the gateway
// for title generation.
func NewGateway(optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Prompts: prompt.NewRegistry(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{
		factory:     opts.Factory,
		prompts:     opts.Prompts,
		defaultKeys: opts.DefaultAPIKeys,
		defaultMods: opts.DefaultModels,
		logger:      opts.Logger,
	}
}

// BindPersister attaches the conversation store that receives completed
// streaming exchanges. Safe to leave unbound: persistence is then skipped.
func (g *Gateway) BindPersister(p Persister) { g.persister = p }

// Chat sends the full message list in conversational mode and returns the
// complete response text. When cfg.Stream is set, every token delta is
// forwarded to ix.OnToken as it arrives; on completion the accumulated text
// is handed to the bound persister, tagged with ix.ConversationID. Without a
// conversation id the exchange is not persisted.
func (g *Gateway) Chat(ctx context.Context, messages []core.Message, cfg Config, ix *Interaction) (string, error) {
	chat, err := g.resolve(cfg)
	if err != nil {
		return "", err
	}

	respCh, errCh := chat.Generate(ctx, Request{Messages: messages, Stream: cfg.Stream})

	var finalText string
	var sawFinal bool
	for resp := range respCh {
		if resp.Partial {
			if ix != nil && ix.OnToken != nil {
				ix.OnToken(resp.Text)
			}
			continue
		}
		finalText = resp.Text
		sawFinal = true
	}
	if err := <-errCh; err != nil {
		return "", fmt.Errorf("model generation: %w", err)
	}
	if !sawFinal {
		return "", fmt.Errorf("model %s returned no final response", chat.Info().Name)
	}

	if cfg.Stream {
		g.persistExchange(ctx, messages, finalText, ix)
	}
	return finalText, nil
}

// Structured runs a single-turn structured-output invocation: renders the
// named template with the caller's variables plus generated format
// instructions, sends it non-streaming, and returns the raw response text.
// Use Decode (or the generic Invoke helper) to parse it.
func (g *Gateway) Structured(ctx context.Context, cfg Config, call StructuredCall) (string, error) {
	rendered, err := g.renderStructuredPrompt(call)
	if err != nil {
		return "", err
	}

	cfg.Stream = false
	chat, err := g.resolve(cfg)
	if err != nil {
		return "", err
	}

	respCh, errCh := chat.Generate(ctx, Request{Messages: []core.Message{core.Human(rendered)}})

	var finalText string
	for resp := range respCh {
		if !resp.Partial {
			finalText = resp.Text
		}
	}
	if err := <-errCh; err != nil {
		return "", fmt.Errorf("model generation: %w", err)
	}
	return finalText, nil
}

// Invoke is the typed structured-output entry point: one Structured call,
// decoded into T. Decode failures surface as core.OutputParseError wrapping
// the raw model text.
func Invoke[T any](ctx context.Context, g *Gateway, cfg Config, call StructuredCall) (T, error) {
	var zero T
	if call.Prototype == nil {
		call.Prototype = zero
	}
	raw, err := g.Structured(ctx, cfg, call)
	if err != nil {
		return zero, err
	}
	return Decode[T](raw)
}

func (g *Gateway) renderStructuredPrompt(call StructuredCall) (string, error) {
	vars := make(map[string]string, len(call.Vars)+1)
	for k, v := range call.Vars {
		vars[k] = v
	}
	vars["format_instructions"] = FormatInstructions(call.Prototype)
	return g.prompts.Render(call.Template, vars)
}

// resolve applies process-wide defaults to the config and builds the adapter.
func (g *Gateway) resolve(cfg Config) (ChatModel, error) {
	if g.factory == nil {
		return nil, &core.ConfigurationError{Field: "model.Factory", Err: fmt.Errorf("gateway has no provider factory")}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = g.defaultKeys[cfg.Provider]
	}
	if cfg.Model == "" {
		cfg.Model = g.defaultMods[cfg.Provider]
	}
	return g.factory(cfg)
}

func (g *Gateway) persistExchange(ctx context.Context, messages []core.Message, answer string, ix *Interaction) {
	if ix == nil || ix.ConversationID == "" || g.persister == nil {
		return
	}
	question := lastHumanText(messages)
	if err := g.persister.Persist(ctx, ix.ConversationID, question, answer); err != nil {
		// A failed save must never fail the user-visible response.
		g.logger.Error("persisting exchange failed", "conversation_id", ix.ConversationID, "error", err)
	}
}

func lastHumanText(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleHuman {
			return messages[i].Text
		}
	}
	if len(messages) > 0 {
		return strings.TrimSpace(messages[len(messages)-1].Text)
	}
	return ""
}
