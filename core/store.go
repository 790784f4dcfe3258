package core

import "context"

// RelationalStore is the persistence contract the pipeline depends on for
// turns, actions and memories. Implementations live outside the core
// (store/inmemory and store/postgres ship as references).
type RelationalStore interface {
	// Turns returns up to limit most recent turns of a conversation in
	// chronological order. A missing conversation yields an empty slice.
	Turns(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	// FirstTurn returns the oldest turn of a conversation, or ErrNotFound.
	FirstTurn(ctx context.Context, conversationID string) (Turn, error)
	// CreateTurn persists a new turn.
	CreateTurn(ctx context.Context, turn Turn) error
	// DeleteInactiveConversations removes conversations whose last turn is
	// older than the given number of days.
	DeleteInactiveConversations(ctx context.Context, days int) error

	// Actions returns all registered actions.
	Actions(ctx context.Context) ([]Action, error)
	// Action returns a single action by id, or ErrNotFound.
	Action(ctx context.Context, id string) (Action, error)
	// CreateAction persists a new action.
	CreateAction(ctx context.Context, action Action) error

	// Memories returns all stored memories.
	Memories(ctx context.Context) ([]Memory, error)
	// Memory returns a single memory by id, or ErrNotFound.
	Memory(ctx context.Context, id string) (Memory, error)
	// CreateMemory persists a new memory.
	CreateMemory(ctx context.Context, memory Memory) error
}

// VectorQuery parameterizes a nearest-neighbour search.
type VectorQuery struct {
	Vector      []float32
	Limit       int
	WithPayload bool
}

// VectorIndex is the nearest-neighbour search contract. Scores are cosine
// similarities in [0,1], returned in descending order; tie order is whatever
// the underlying index produces.
type VectorIndex interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, collection string, query VectorQuery) ([]VectorHit, error)
	Delete(ctx context.Context, collection, id string) error
}

// Embedder turns text into a vector in the index's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
