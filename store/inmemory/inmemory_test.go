package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/core"
)

func TestStore_TurnsChronologicalWithLimit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateTurn(ctx, core.Turn{
			ID: string(rune('a' + i)), ConversationID: "conv",
			Question: "q", Answer: "a",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	turns, err := store.Turns(ctx, "conv", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// Limit keeps the most recent turns, still oldest-first.
	assert.Equal(t, "c", turns[0].ID)
	assert.Equal(t, "e", turns[2].ID)
}

func TestStore_FirstTurn(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.FirstTurn(ctx, "conv")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	base := time.Now()
	require.NoError(t, store.CreateTurn(ctx, core.Turn{ID: "second", ConversationID: "conv", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.CreateTurn(ctx, core.Turn{ID: "first", ConversationID: "conv", CreatedAt: base}))

	turn, err := store.FirstTurn(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, "first", turn.ID)
}

func TestStore_DeleteInactiveConversations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateTurn(ctx, core.Turn{
		ID: "old", ConversationID: "stale", CreatedAt: time.Now().AddDate(0, 0, -20),
	}))
	require.NoError(t, store.CreateTurn(ctx, core.Turn{
		ID: "recent", ConversationID: "stale", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.CreateTurn(ctx, core.Turn{
		ID: "abandoned", ConversationID: "dead", CreatedAt: time.Now().AddDate(0, 0, -20),
	}))

	require.NoError(t, store.DeleteInactiveConversations(ctx, 15))

	// A conversation with any recent activity keeps its full history.
	stale, err := store.Turns(ctx, "stale", 0)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	dead, err := store.Turns(ctx, "dead", 0)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestStore_ActionsAndMemories(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Action(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = store.Memory(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, store.CreateAction(ctx, core.Action{ID: "a1", Name: "zeta"}))
	require.NoError(t, store.CreateAction(ctx, core.Action{ID: "a2", Name: "alpha"}))
	actions, err := store.Actions(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "alpha", actions[0].Name)

	require.NoError(t, store.CreateMemory(ctx, core.Memory{ID: "m1", Title: "tea"}))
	memory, err := store.Memory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "tea", memory.Title)
}

func TestIndex_SearchRanksByCosine(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()
	require.NoError(t, index.Upsert(ctx, "test", "exact", []float32{1, 0}, map[string]any{"k": "v"}))
	require.NoError(t, index.Upsert(ctx, "test", "orthogonal", []float32{0, 1}, nil))
	require.NoError(t, index.Upsert(ctx, "test", "diagonal", []float32{1, 1}, nil))

	hits, err := index.Search(ctx, "test", core.VectorQuery{Vector: []float32{1, 0}, Limit: 2, WithPayload: true})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "diagonal", hits[1].ID)
	assert.Equal(t, map[string]any{"k": "v"}, hits[0].Payload)
}

func TestIndex_SearchWithoutPayload(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()
	require.NoError(t, index.Upsert(ctx, "test", "a", []float32{1, 0}, map[string]any{"k": "v"}))

	hits, err := index.Search(ctx, "test", core.VectorQuery{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Nil(t, hits[0].Payload)
}

func TestIndex_Delete(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()
	require.NoError(t, index.Upsert(ctx, "test", "a", []float32{1, 0}, nil))
	require.NoError(t, index.Delete(ctx, "test", "a"))

	hits, err := index.Search(ctx, "test", core.VectorQuery{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_UpsertCopiesVector(t *testing.T) {
	index := NewIndex()
	ctx := context.Background()
	vector := []float32{1, 0}
	require.NoError(t, index.Upsert(ctx, "test", "a", vector, nil))

	// Mutating the caller's slice must not corrupt the stored entry.
	vector[0] = 0
	hits, err := index.Search(ctx, "test", core.VectorQuery{Vector: []float32{1, 0}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}), "mismatched dimensions")
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 2}), "zero vector")
}
