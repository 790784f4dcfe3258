package rerank

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/core"
	"mnemo/model"
)

// verdictModel answers "1" when the prompt mentions a keep marker, "0"
// otherwise, and counts how many generations it served.
type verdictModel struct {
	mu      sync.Mutex
	calls   int
	answers func(promptText string) string
}

func (m *verdictModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	text := "0"
	if len(req.Messages) > 0 && m.answers != nil {
		text = m.answers(req.Messages[len(req.Messages)-1].Text)
	}
	respCh <- model.Response{Text: text, FinishReason: "stop"}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *verdictModel) Info() model.Info {
	return model.Info{Name: "verdict", Provider: model.ProviderOpenAI}
}

func (m *verdictModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func gatewayOver(chat model.ChatModel) *model.Gateway {
	return model.NewGateway(func(o *model.Options) {
		o.Factory = func(model.Config) (model.ChatModel, error) { return chat, nil }
	})
}

func candidate(id, content string) core.Candidate {
	return core.Candidate{Kind: core.KindMemory, ID: id, Title: "t-" + id, Content: content}
}

func TestReranker_KeepsRelevantInOrder(t *testing.T) {
	chat := &verdictModel{answers: func(promptText string) string {
		if strings.Contains(promptText, "keepme") {
			return "1"
		}
		return "0"
	}}
	reranker := New(gatewayOver(chat))

	in := []core.Candidate{
		candidate("a", "keepme alpha"),
		candidate("b", "drop beta"),
		candidate("c", "keepme gamma"),
	}
	kept, err := reranker.Rerank(context.Background(), "what about it?", in)
	require.NoError(t, err)

	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "c", kept[1].ID)
	assert.Equal(t, 3, chat.Calls(), "one verdict call per candidate")
}

func TestReranker_EmptyInput(t *testing.T) {
	chat := &verdictModel{}
	reranker := New(gatewayOver(chat))

	kept, err := reranker.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Zero(t, chat.Calls())
}

func TestReranker_UnrecognizedVerdictRejects(t *testing.T) {
	chat := &verdictModel{answers: func(string) string { return "definitely relevant!" }}
	reranker := New(gatewayOver(chat))

	kept, err := reranker.Rerank(context.Background(), "q", []core.Candidate{candidate("a", "x")})
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestReranker_WhitespacePaddedVerdict(t *testing.T) {
	chat := &verdictModel{answers: func(string) string { return "  1\n" }}
	reranker := New(gatewayOver(chat))

	kept, err := reranker.Rerank(context.Background(), "q", []core.Candidate{candidate("a", "x")})
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

// explodingModel errors on prompts containing "explode" and keeps the rest.
type explodingModel struct{}

func (explodingModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	if len(req.Messages) > 0 && strings.Contains(req.Messages[len(req.Messages)-1].Text, "explode") {
		errCh <- assert.AnError
	} else {
		respCh <- model.Response{Text: "1", FinishReason: "stop"}
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (explodingModel) Info() model.Info {
	return model.Info{Name: "exploding", Provider: model.ProviderOpenAI}
}

func TestReranker_FailureIsolatedToCandidate(t *testing.T) {
	reranker := New(gatewayOver(explodingModel{}))

	in := []core.Candidate{
		candidate("bad", "explode now"),
		candidate("good", "stable content"),
	}
	kept, err := reranker.Rerank(context.Background(), "q", in)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "good", kept[0].ID)
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		raw        string
		want       verdict
		recognized bool
	}{
		{"1", verdictKeep, true},
		{"0", verdictReject, true},
		{" 1 ", verdictKeep, true},
		{"", verdictReject, false},
		{"yes", verdictReject, false},
		{"10", verdictReject, false},
	}
	for _, tc := range cases {
		got, recognized := parseVerdict(tc.raw)
		if got != tc.want || recognized != tc.recognized {
			t.Fatalf("parseVerdict(%q) = (%v, %v), want (%v, %v)", tc.raw, got, recognized, tc.want, tc.recognized)
		}
	}
}
