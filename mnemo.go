// Package mnemo is a conversational assistant core: it recalls stored
// knowledge by vector similarity, filters it for semantic relevance, and
// either answers from that context or selects and executes a registered
// remote action, all through a uniform model gateway.
package mnemo

import (
	"context"
	"fmt"

	"mnemo/action"
	"mnemo/conversation"
	"mnemo/core"
	"mnemo/intent"
	"mnemo/logging"
	"mnemo/model"
	"mnemo/model/providers"
	"mnemo/prompt"
	"mnemo/recall"
	"mnemo/rerank"
	"mnemo/respond"

	"github.com/google/uuid"
)

// Options configure an Assistant. Store, Index and Embedder are required;
// everything else has a usable default.
type Options struct {
	// Store persists turns, memories and actions.
	Store core.RelationalStore
	// Index answers nearest-neighbour queries.
	Index core.VectorIndex
	// Embedder turns text into vectors for recall and registration.
	Embedder core.Embedder
	// Workflow executes action webhooks. Required only when actions run.
	Workflow action.Invoker
	// Factory resolves model configs to provider adapters. Defaults to the
	// standard openai/anthropic switch.
	Factory model.Factory
	// ModelConfig is the base config for the final answer call.
	ModelConfig model.Config
	// DefaultAPIKeys and DefaultModels fill empty per-call config fields.
	DefaultAPIKeys map[string]string
	DefaultModels  map[string]string
	// Prompts resolves all templates; defaults to the embedded set.
	Prompts *prompt.Registry
	// Logger receives pipeline diagnostics.
	Logger logging.Logger
	// HistoryLimit caps replayed turns; RecallLimit caps recalled candidates.
	HistoryLimit int
	RecallLimit  int
}

// AskOptions carry the per-request knobs of one Ask call.
type AskOptions struct {
	// ConversationID threads the request into a conversation; empty means a
	// one-off exchange that is not persisted.
	ConversationID string
	// OnToken receives streamed answer tokens as they arrive. Setting it
	// switches the answer call to streaming mode.
	OnToken func(token string)
}

// Answer is the result of one Ask.
type Answer struct {
	// Text is the assistant's reply.
	Text string
	// Intent is the classification that routed the request.
	Intent intent.Result
	// Action is the executed action's outcome; nil on the query path.
	Action *action.Outcome
}

// Assistant aggregates the pipeline: conversation memory, intent
// classification, recall, relevance filtering, action execution and response
// composition behind one Ask entry point.
type Assistant struct {
	store         core.RelationalStore
	index         core.VectorIndex
	embedder      core.Embedder
	gateway       *model.Gateway
	conversations *conversation.Store
	classifier    *intent.Classifier
	recaller      *recall.Recaller
	reranker      *rerank.Reranker
	registry      *action.Registry
	selector      *action.Selector
	composer      *respond.Composer
	modelConfig   model.Config
	recallLimit   int
	logger        logging.Logger
}

// New wires an Assistant from its dependencies.
func New(optFns ...func(o *Options)) (*Assistant, error) {
	opts := Options{
		Factory:      providers.Default(),
		ModelConfig:  model.Config{Provider: model.ProviderOpenAI},
		Prompts:      prompt.NewRegistry(),
		Logger:       logging.NoOpLogger{},
		HistoryLimit: 10,
		RecallLimit:  5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		return nil, &core.ConfigurationError{Field: "Store", Err: fmt.Errorf("a relational store is required")}
	}
	if opts.Index == nil {
		return nil, &core.ConfigurationError{Field: "Index", Err: fmt.Errorf("a vector index is required")}
	}
	if opts.Embedder == nil {
		return nil, &core.ConfigurationError{Field: "Embedder", Err: fmt.Errorf("an embedder is required")}
	}

	gateway := model.NewGateway(func(o *model.Options) {
		o.Factory = opts.Factory
		o.Prompts = opts.Prompts
		o.DefaultAPIKeys = opts.DefaultAPIKeys
		o.DefaultModels = opts.DefaultModels
		o.Logger = opts.Logger
	})

	conversations := conversation.NewStore(opts.Store, gateway, func(o *conversation.Options) {
		o.HistoryLimit = opts.HistoryLimit
		o.TitleConfig = opts.ModelConfig
		o.Prompts = opts.Prompts
		o.Logger = opts.Logger
	})
	gateway.BindPersister(conversations)

	recaller := recall.New(opts.Index, opts.Store, func(o *recall.Options) {
		o.Logger = opts.Logger
	})
	registry := action.NewRegistry(opts.Store, opts.Index, opts.Embedder, func(o *action.RegistryOptions) {
		o.Logger = opts.Logger
	})

	a := &Assistant{
		store:         opts.Store,
		index:         opts.Index,
		embedder:      opts.Embedder,
		gateway:       gateway,
		conversations: conversations,
		recaller:      recaller,
		registry:      registry,
		modelConfig:   opts.ModelConfig,
		recallLimit:   opts.RecallLimit,
		logger:        opts.Logger,
	}
	a.classifier = intent.New(gateway, func(o *intent.Options) {
		o.ModelConfig = opts.ModelConfig.WithTemperature(0.2)
		o.Logger = opts.Logger
	})
	a.reranker = rerank.New(gateway, func(o *rerank.Options) {
		o.ModelConfig = opts.ModelConfig
		o.Prompts = opts.Prompts
		o.Logger = opts.Logger
	})
	a.selector = action.NewSelector(registry, recaller, gateway, opts.Workflow, func(o *action.SelectorOptions) {
		o.ModelConfig = opts.ModelConfig.WithTemperature(0.2)
		o.Logger = opts.Logger
	})
	a.composer = respond.NewComposer(func(o *respond.Options) {
		o.Prompts = opts.Prompts
		o.Logger = opts.Logger
	})
	return a, nil
}

// Ask runs the full pipeline for one user query: classify, recall, filter,
// act or ground, and generate the reply. With a conversation id the exchange
// is persisted and prior turns are replayed as context.
func (a *Assistant) Ask(ctx context.Context, query string, optFns ...func(o *AskOptions)) (Answer, error) {
	var opts AskOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	history, err := a.conversations.History(ctx, opts.ConversationID, 0)
	if err != nil {
		return Answer{}, err
	}

	classified, err := a.classifier.Classify(ctx, query, history)
	if err != nil {
		return Answer{}, err
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := a.recaller.Memories(ctx, collectionFor(classified.Category), vector, a.recallLimit)
	if err != nil {
		return Answer{}, err
	}
	relevant, err := a.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return Answer{}, err
	}

	answer := Answer{Intent: classified}
	var grounding respond.Context
	if classified.Kind == intent.KindAction {
		outcome, err := a.selector.Perform(ctx, query, vector, relevant, opts.ConversationID)
		if err != nil {
			return Answer{}, err
		}
		answer.Action = &outcome
		grounding = respond.ActionContext(outcome.Action, outcome.Status, fmt.Sprintf("%v", outcome.Data))
	} else {
		grounding = respond.MemoryContext(relevant)
	}

	messages, err := a.composer.Messages(query, history, grounding)
	if err != nil {
		return Answer{}, err
	}

	cfg := a.modelConfig
	cfg.Stream = opts.OnToken != nil
	ix := &model.Interaction{ConversationID: opts.ConversationID, OnToken: opts.OnToken}
	text, err := a.gateway.Chat(ctx, messages, cfg, ix)
	if err != nil {
		return Answer{}, err
	}
	answer.Text = text

	// Streaming exchanges persist inside the gateway; non-streaming ones are
	// saved here so both modes leave the same record behind.
	if !cfg.Stream && opts.ConversationID != "" {
		_ = a.conversations.Persist(ctx, opts.ConversationID, query, text)
	}
	return answer, nil
}

// Remember stores a memory and indexes it for recall.
func (a *Assistant) Remember(ctx context.Context, title, content string, tags []string) (core.Memory, error) {
	memory := core.Memory{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
		Tags:    tags,
		Active:  true,
	}
	if err := a.store.CreateMemory(ctx, memory); err != nil {
		return core.Memory{}, fmt.Errorf("create memory: %w", err)
	}
	vector, err := a.embedder.Embed(ctx, title+": "+content)
	if err != nil {
		return core.Memory{}, fmt.Errorf("embed memory: %w", err)
	}
	payload := map[string]any{"title": title, "tags": tags}
	if err := a.index.Upsert(ctx, recall.CollectionMemories, memory.ID, vector, payload); err != nil {
		return core.Memory{}, fmt.Errorf("index memory: %w", err)
	}
	a.logger.Info("memory stored", "id", memory.ID, "title", title)
	return memory, nil
}

// RegisterAction adds an action to the registry.
func (a *Assistant) RegisterAction(ctx context.Context, def action.Definition) (core.Action, error) {
	return a.registry.Add(ctx, def)
}

// CleanupInactive removes conversations idle for more than the given number
// of days.
func (a *Assistant) CleanupInactive(ctx context.Context, days int) {
	a.conversations.DumpInactive(ctx, days)
}

// collectionFor maps an intent category to the recall collection it queries.
// CategoryAll searches the memory corpus, which doubles as the catch-all.
func collectionFor(category intent.Category) string {
	switch category {
	case intent.CategoryNote:
		return recall.CollectionNotes
	case intent.CategoryResource:
		return recall.CollectionResources
	default:
		return recall.CollectionMemories
	}
}
