package mnemo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/action"
	"mnemo/intent"
	"mnemo/model"
	"mnemo/store/inmemory"
	"mnemo/workflow"
)

// dispatchModel routes each generation by the first message's template
// header, standing in for every model call the pipeline makes.
type dispatchModel struct {
	mu        sync.Mutex
	intent    string
	selection string
	answer    string
	title     string
	relevance func(promptText string) string
	seen      []string
}

func (d *dispatchModel) respond(req model.Request) string {
	promptText := ""
	if len(req.Messages) > 0 {
		promptText = req.Messages[0].Text
	}
	switch {
	case strings.Contains(promptText, "# Intent Recognition"):
		d.record("intent")
		return d.intent
	case strings.Contains(promptText, "# Semantic Relevance Check"):
		d.record("relevance")
		if d.relevance != nil {
			return d.relevance(promptText)
		}
		return "0"
	case strings.Contains(promptText, "# Action Selection"):
		d.record("selection")
		return d.selection
	case strings.Contains(promptText, "# Conversation Title"):
		d.record("title")
		return d.title
	case strings.Contains(promptText, "# Assistant"):
		d.record("answer")
		return d.answer
	default:
		d.record("unknown")
		return ""
	}
}

func (d *dispatchModel) record(kind string) {
	d.mu.Lock()
	d.seen = append(d.seen, kind)
	d.mu.Unlock()
}

func (d *dispatchModel) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.seen {
		if s == kind {
			n++
		}
	}
	return n
}

func (d *dispatchModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 64)
	errCh := make(chan error, 1)
	full := d.respond(req)
	if req.Stream {
		for _, r := range full {
			respCh <- model.Response{Partial: true, Text: string(r)}
		}
	}
	respCh <- model.Response{Text: full, FinishReason: "stop"}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (d *dispatchModel) Info() model.Info {
	return model.Info{Name: "dispatch", Provider: model.ProviderOpenAI}
}

// wordEmbedder maps text to a tiny deterministic vector so related strings
// land near each other.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, 8)
	for i, r := range text {
		vector[i%8] += float32(r%23) / 23
	}
	return vector, nil
}

func newAssistant(t *testing.T, chat model.ChatModel, webhookBase string) *Assistant {
	t.Helper()
	var invoker action.Invoker
	if webhookBase != "" {
		invoker = workflow.NewClient(func(o *workflow.Options) {
			o.BaseURL = webhookBase
		})
	}
	assistant, err := New(func(o *Options) {
		o.Store = inmemory.NewStore()
		o.Index = inmemory.NewIndex()
		o.Embedder = wordEmbedder{}
		o.Workflow = invoker
		o.Factory = func(model.Config) (model.ChatModel, error) { return chat, nil }
	})
	require.NoError(t, err)
	return assistant
}

func TestNew_RequiresStoreIndexEmbedder(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	_, err = New(func(o *Options) {
		o.Store = inmemory.NewStore()
		o.Index = inmemory.NewIndex()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Embedder")
}

func TestAssistant_QueryPath(t *testing.T) {
	chat := &dispatchModel{
		intent: `{"type":0,"category":1,"summary":"User asks about tea."}`,
		relevance: func(promptText string) string {
			if strings.Contains(promptText, "green tea") {
				return "1"
			}
			return "0"
		},
		answer: "You like green tea with jasmine.",
		title:  "Tea preferences",
	}
	assistant := newAssistant(t, chat, "")
	ctx := context.Background()

	_, err := assistant.Remember(ctx, "Favourite tea", "User prefers green tea with jasmine.", []string{"tea"})
	require.NoError(t, err)
	_, err = assistant.Remember(ctx, "Commute", "User cycles to work.", []string{"commute"})
	require.NoError(t, err)

	var streamed strings.Builder
	answer, err := assistant.Ask(ctx, "What tea do I like?", func(o *AskOptions) {
		o.ConversationID = "conv-tea"
		o.OnToken = func(token string) { streamed.WriteString(token) }
	})
	require.NoError(t, err)

	assert.Equal(t, "You like green tea with jasmine.", answer.Text)
	assert.Equal(t, answer.Text, streamed.String())
	assert.Equal(t, intent.KindQuery, answer.Intent.Kind)
	assert.Equal(t, intent.CategoryMemory, answer.Intent.Category)
	assert.Nil(t, answer.Action)

	assert.Equal(t, 1, chat.count("intent"))
	assert.Equal(t, 2, chat.count("relevance"), "one verdict per recalled memory")
	assert.Equal(t, 1, chat.count("answer"))
	assert.Zero(t, chat.count("selection"), "query path must not select actions")
}

func TestAssistant_QueryPathPersistsTurnWithTitle(t *testing.T) {
	chat := &dispatchModel{
		intent: `{"type":0,"category":4,"summary":"s"}`,
		answer: "Hello there.",
		title:  "Greeting",
	}
	assistant := newAssistant(t, chat, "")
	ctx := context.Background()

	_, err := assistant.Ask(ctx, "hey", func(o *AskOptions) {
		o.ConversationID = "conv-1"
		o.OnToken = func(string) {}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.count("title"), "first turn generates its title")

	_, err = assistant.Ask(ctx, "hey again", func(o *AskOptions) {
		o.ConversationID = "conv-1"
		o.OnToken = func(string) {}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.count("title"), "later turns reuse the stored title")

	turns, err := assistant.store.Turns(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hey", turns[0].Question)
	assert.Equal(t, "Hello there.", turns[0].Answer)
	assert.Equal(t, "Greeting", turns[0].Title)
	assert.Equal(t, "Greeting", turns[1].Title)
}

func TestAssistant_ActionPath(t *testing.T) {
	var webhookQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"stored"}`))
	}))
	defer server.Close()

	chat := &dispatchModel{
		intent: `{"type":1,"category":1,"summary":"User wants inventory updated."}`,
		selection: `{
			"action_name": "manage_inventory_medical",
			"confidence": 0.9,
			"reasoning": "medical inventory request",
			"extracted_parameters": {"sessionId": "conv-act", "chatInput": "add ibuprofen"}
		}`,
		answer: "Done, I added ibuprofen to your medical inventory.",
		title:  "Inventory update",
	}
	assistant := newAssistant(t, chat, server.URL)

	answer, err := assistant.Ask(context.Background(), "add ibuprofen to my meds", func(o *AskOptions) {
		o.ConversationID = "conv-act"
		o.OnToken = func(string) {}
	})
	require.NoError(t, err)

	assert.Equal(t, intent.KindAction, answer.Intent.Kind)
	require.NotNil(t, answer.Action)
	assert.Equal(t, action.StatusOK, answer.Action.Status)
	assert.Equal(t, "manage_inventory_medical", answer.Action.Action)
	assert.Equal(t, "Done, I added ibuprofen to your medical inventory.", answer.Text)

	require.NotNil(t, webhookQuery)
	assert.Equal(t, []string{"add ibuprofen to my meds"}, webhookQuery["query"])
	assert.Equal(t, []string{"conv-act"}, webhookQuery["conversationId"])
	assert.Equal(t, []string{"add ibuprofen"}, webhookQuery["chatInput"])

	assert.Equal(t, 1, chat.count("selection"))
}

func TestAssistant_NonStreamingAskPersists(t *testing.T) {
	chat := &dispatchModel{
		intent: `{"type":0,"category":4,"summary":"s"}`,
		answer: "Sure.",
		title:  "Quick chat",
	}
	assistant := newAssistant(t, chat, "")
	ctx := context.Background()

	answer, err := assistant.Ask(ctx, "hello", func(o *AskOptions) {
		o.ConversationID = "conv-sync"
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure.", answer.Text)

	turns, err := assistant.store.Turns(ctx, "conv-sync", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Question)
}

func TestAssistant_OneOffAskLeavesNoTrace(t *testing.T) {
	chat := &dispatchModel{
		intent: `{"type":0,"category":4,"summary":"s"}`,
		answer: "Hi.",
	}
	assistant := newAssistant(t, chat, "")
	ctx := context.Background()

	_, err := assistant.Ask(ctx, "hello")
	require.NoError(t, err)

	assert.Zero(t, chat.count("title"))
}

func TestAssistant_IntentFailureAborts(t *testing.T) {
	chat := &dispatchModel{intent: "no json here"}
	assistant := newAssistant(t, chat, "")

	_, err := assistant.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Zero(t, chat.count("answer"), "no answer call after a failed classification")
}
