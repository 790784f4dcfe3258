package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mnemo/core"
	"mnemo/store/inmemory"
)

func seedMemory(t *testing.T, store *inmemory.Store, index *inmemory.Index, id string, vector []float32, active bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateMemory(ctx, core.Memory{
		ID: id, Title: "m-" + id, Content: "content " + id, Active: active,
	}))
	require.NoError(t, index.Upsert(ctx, CollectionMemories, id, vector, nil))
}

func TestRecaller_MemoriesOrderedByScore(t *testing.T) {
	store := inmemory.NewStore()
	index := inmemory.NewIndex()
	seedMemory(t, store, index, "far", []float32{0, 1}, true)
	seedMemory(t, store, index, "near", []float32{1, 0}, true)
	seedMemory(t, store, index, "mid", []float32{1, 1}, true)

	recaller := New(index, store)
	candidates, err := recaller.Memories(context.Background(), CollectionMemories, []float32{1, 0}, 3)
	require.NoError(t, err)

	require.Len(t, candidates, 3)
	assert.Equal(t, "near", candidates[0].ID)
	assert.Equal(t, "mid", candidates[1].ID)
	assert.Equal(t, "far", candidates[2].ID)
	assert.Greater(t, candidates[0].VectorScore, candidates[1].VectorScore)
}

func TestRecaller_MemoriesDropsStaleHits(t *testing.T) {
	store := inmemory.NewStore()
	index := inmemory.NewIndex()
	seedMemory(t, store, index, "kept", []float32{1, 0}, true)
	// Indexed but never stored relationally: a stale index entry.
	require.NoError(t, index.Upsert(context.Background(), CollectionMemories, "ghost", []float32{1, 0}, nil))

	recaller := New(index, store)
	candidates, err := recaller.Memories(context.Background(), CollectionMemories, []float32{1, 0}, 5)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "kept", candidates[0].ID)
}

func TestRecaller_MemoriesSkipsInactive(t *testing.T) {
	store := inmemory.NewStore()
	index := inmemory.NewIndex()
	seedMemory(t, store, index, "active", []float32{1, 0}, true)
	seedMemory(t, store, index, "archived", []float32{1, 0}, false)

	recaller := New(index, store)
	candidates, err := recaller.Memories(context.Background(), CollectionMemories, []float32{1, 0}, 5)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "active", candidates[0].ID)
}

func TestRecaller_MemoriesHonorsLimit(t *testing.T) {
	store := inmemory.NewStore()
	index := inmemory.NewIndex()
	seedMemory(t, store, index, "a", []float32{1, 0}, true)
	seedMemory(t, store, index, "b", []float32{1, 0.1}, true)
	seedMemory(t, store, index, "c", []float32{1, 0.2}, true)

	recaller := New(index, store)
	candidates, err := recaller.Memories(context.Background(), CollectionMemories, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestRecaller_Actions(t *testing.T) {
	store := inmemory.NewStore()
	index := inmemory.NewIndex()
	ctx := context.Background()

	require.NoError(t, store.CreateAction(ctx, core.Action{
		ID: "act-1", Name: "memorise", Active: true,
		Schema: core.ActionSchema{Name: "memorise", Description: "store a memory"},
	}))
	require.NoError(t, index.Upsert(ctx, CollectionActions, "act-1", []float32{1, 0}, nil))
	require.NoError(t, index.Upsert(ctx, CollectionActions, "stale", []float32{1, 0}, nil))

	recaller := New(index, store)
	actions, err := recaller.Actions(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, "memorise", actions[0].Action.Name)
	assert.InDelta(t, 1.0, actions[0].Score, 1e-6)
}
