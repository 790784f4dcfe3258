// Package conversation reconstructs prior turns as role-tagged messages and
// persists new exchanges. Titles are generated lazily: exactly one model call
// on a conversation's first turn, reused verbatim afterwards.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/model"
	"mnemo/prompt"
)

// chatCaller is the slice of the model gateway this package needs.
type chatCaller interface {
	Chat(ctx context.Context, messages []core.Message, cfg model.Config, ix *model.Interaction) (string, error)
}

// Options configure a Store.
type Options struct {
	// HistoryLimit caps how many turns History replays by default.
	HistoryLimit int
	// TitleConfig parameterizes the one-off title generation call.
	TitleConfig model.Config
	// Prompts resolves the title template.
	Prompts *prompt.Registry
	// Logger receives persistence diagnostics.
	Logger logging.Logger
	// Clock is injectable for tests.
	Clock func() time.Time
}

// Store is the conversation memory: history reconstruction over the
// relational store plus write-through persistence of new turns.
type Store struct {
	store   core.RelationalStore
	gateway chatCaller
	opts    Options
}

// NewStore builds a conversation memory over the given relational store and
// model gateway (used solely for title generation).
func NewStore(store core.RelationalStore, gateway chatCaller, optFns ...func(o *Options)) *Store {
	opts := Options{
		HistoryLimit: 10,
		TitleConfig:  model.Config{Provider: model.ProviderOpenAI},
		Prompts:      prompt.NewRegistry(),
		Logger:       logging.NoOpLogger{},
		Clock:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{store: store, gateway: gateway, opts: opts}
}

// History returns the most recent turns of a conversation as alternating
// human/assistant messages, oldest first. limit <= 0 falls back to the
// configured default. A missing conversation yields an empty slice.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]core.Message, error) {
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	turns, err := s.store.Turns(ctx, conversationID, limit)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	messages := make([]core.Message, 0, len(turns)*2)
	for _, turn := range turns {
		if turn.Question == "" || turn.Answer == "" {
			s.opts.Logger.Warn("incomplete turn skipped", "conversation_id", conversationID, "turn_id", turn.ID)
			continue
		}
		messages = append(messages, core.Human(turn.Question), core.Assistant(turn.Answer))
	}
	return messages, nil
}

// Persist stores one question/answer exchange. The first turn of a
// conversation triggers a single title-generation call; later turns reuse
// the stored title. Every failure is logged and swallowed: a storage hiccup
// must never fail the user-visible response.
func (s *Store) Persist(ctx context.Context, conversationID, question, answer string) error {
	title, err := s.resolveTitle(ctx, conversationID, question, answer)
	if err != nil {
		s.opts.Logger.Error("resolving conversation title failed", "conversation_id", conversationID, "error", err)
		title = ""
	}

	turn := core.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		Title:          title,
		CreatedAt:      s.opts.Clock(),
	}
	if err := s.store.CreateTurn(ctx, turn); err != nil {
		s.opts.Logger.Error("saving turn failed", "conversation_id", conversationID, "error", err)
		return nil
	}
	s.opts.Logger.Debug("turn saved", "conversation_id", conversationID, "turn_id", turn.ID)
	return nil
}

// DumpInactive removes conversations inactive for more than the given number
// of days. Errors are logged, not propagated: cleanup is housekeeping.
func (s *Store) DumpInactive(ctx context.Context, days int) {
	if days <= 0 {
		days = 15
	}
	if err := s.store.DeleteInactiveConversations(ctx, days); err != nil {
		s.opts.Logger.Error("dumping inactive conversations failed", "days", days, "error", err)
		return
	}
	s.opts.Logger.Info("inactive conversations processed", "days", days)
}

func (s *Store) resolveTitle(ctx context.Context, conversationID, question, answer string) (string, error) {
	first, err := s.store.FirstTurn(ctx, conversationID)
	if err == nil {
		return first.Title, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}

	// First turn of the conversation: synthesize a title once.
	template, err := s.opts.Prompts.Load(prompt.ConversationTitle)
	if err != nil {
		return "", err
	}
	messages := []core.Message{
		core.System(template),
		core.Human(question),
		core.Assistant(answer),
	}
	cfg := s.opts.TitleConfig
	cfg.Stream = false
	title, err := s.gateway.Chat(ctx, messages, cfg, nil)
	if err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	s.opts.Logger.Debug("conversation title generated", "conversation_id", conversationID, "title", title)
	return title, nil
}
