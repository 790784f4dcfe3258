// Package anthropic adapts the Anthropic Messages API (streaming and
// non-streaming) to the generic model.ChatModel interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"mnemo/core"
	"mnemo/model"
)

// defaultMaxTokens applies when the config leaves MaxTokens unset; the
// Messages API requires an explicit cap.
const defaultMaxTokens = 4096

// ChatModel wraps the Anthropic client behind model.ChatModel.
type ChatModel struct {
	client anthropic.Client
	cfg    model.Config
}

// New creates an Anthropic chat model from an invocation config. Timeout and
// retry budget map onto the SDK's request options; zero values keep the SDK
// defaults.
func New(cfg model.Config) *ChatModel {
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}
	var reqOpts []option.RequestOption
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &ChatModel{client: anthropic.NewClient(reqOpts...), cfg: cfg}
}

// Generate implements model.ChatModel.
func (m *ChatModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)
		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}
		m.handleNonStreaming(ctx, params, out, errCh)
	}()
	return out, errCh
}

// Info implements model.ChatModel.
func (m *ChatModel) Info() model.Info {
	return model.Info{Name: m.cfg.Model, Provider: model.ProviderAnthropic}
}

func (m *ChatModel) buildParams(req model.Request) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	var systemBlocks []anthropic.TextBlockParam

	for _, msg := range req.Messages {
		if msg.Text == "" {
			continue
		}
		switch msg.Role {
		case core.RoleSystem:
			// System prompts travel out of band in the Messages API.
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Text})
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
		}
	}

	maxTokens := m.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.cfg.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if m.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*m.cfg.Temperature)
	}
	return params
}

func (m *ChatModel) handleStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Messages.NewStreaming(ctx, params)
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			errCh <- fmt.Errorf("anthropic stream accumulation: %w", err)
			return
		}
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				out <- model.Response{Partial: true, Text: delta.Text}
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		return
	}
	out <- model.Response{
		Partial:      false,
		Text:         collectText(message.Content),
		FinishReason: finishReason(message.StopReason),
	}
}

func (m *ChatModel) handleNonStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("anthropic api error: %w", err)
		return
	}
	out <- model.Response{
		Partial:      false,
		Text:         collectText(resp.Content),
		FinishReason: finishReason(resp.StopReason),
	}
}

func collectText(blocks []anthropic.ContentBlockUnion) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	return b.String()
}

func finishReason(stop anthropic.StopReason) string {
	if stop == "" {
		return "stop"
	}
	return string(stop)
}
