// Package openai adapts the OpenAI Chat Completions API (streaming and
// non-streaming) to the generic model.ChatModel interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mnemo/core"
	"mnemo/model"
)

// ChatModel wraps the OpenAI client behind model.ChatModel.
type ChatModel struct {
	client openai.Client
	cfg    model.Config
}

// New creates an OpenAI chat model from an invocation config. Timeout and
// retry budget map onto the SDK's request options; zero values keep the SDK
// defaults.
func New(cfg model.Config) *ChatModel {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
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
	return &ChatModel{client: openai.NewClient(reqOpts...), cfg: cfg}
}

// NewFromClient creates an OpenAI chat model from an existing client,
// ignoring transport fields of the config.
func NewFromClient(client openai.Client, cfg model.Config) *ChatModel {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	return &ChatModel{client: client, cfg: cfg}
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
	return model.Info{Name: m.cfg.Model, Provider: model.ProviderOpenAI}
}

func (m *ChatModel) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Text))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Text))
		default:
			messages = append(messages, openai.UserMessage(msg.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    m.cfg.Model,
	}
	if m.cfg.Temperature != nil {
		params.Temperature = openai.Float(*m.cfg.Temperature)
	}
	if m.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(m.cfg.MaxTokens)
	}
	return params
}

func (m *ChatModel) handleStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	finishReason := "stop"
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				out <- model.Response{Partial: true, Text: choice.Delta.Content}
			}
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
		return
	}
	var full string
	if len(acc.Choices) > 0 {
		full = acc.Choices[0].Message.Content
	}
	out <- model.Response{Partial: false, Text: full, FinishReason: finishReason}
}

func (m *ChatModel) handleNonStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}
	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}
	choice := resp.Choices[0]
	out <- model.Response{
		Partial:      false,
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
}
