// Package inmemory provides map-backed reference implementations of the
// relational store and the vector index. Useful for tests and demos; nothing
// survives a restart.
package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"mnemo/core"
)

// Store is an in-memory core.RelationalStore.
type Store struct {
	mu       sync.RWMutex
	turns    []core.Turn
	actions  map[string]core.Action
	memories map[string]core.Memory
	clock    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		actions:  make(map[string]core.Action),
		memories: make(map[string]core.Memory),
		clock:    time.Now,
	}
}

// SetClock overrides the time source. For tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Turns implements core.RelationalStore.
func (s *Store) Turns(_ context.Context, conversationID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]core.Turn, 0)
	for _, turn := range s.turns {
		if turn.ConversationID == conversationID {
			matched = append(matched, turn)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

// FirstTurn implements core.RelationalStore.
func (s *Store) FirstTurn(_ context.Context, conversationID string) (core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first core.Turn
	found := false
	for _, turn := range s.turns {
		if turn.ConversationID != conversationID {
			continue
		}
		if !found || turn.CreatedAt.Before(first.CreatedAt) {
			first = turn
			found = true
		}
	}
	if !found {
		return core.Turn{}, core.ErrNotFound
	}
	return first, nil
}

// CreateTurn implements core.RelationalStore.
func (s *Store) CreateTurn(_ context.Context, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.clock()
	}
	s.turns = append(s.turns, turn)
	return nil
}

// DeleteInactiveConversations implements core.RelationalStore.
func (s *Store) DeleteInactiveConversations(_ context.Context, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().AddDate(0, 0, -days)
	latest := make(map[string]time.Time)
	for _, turn := range s.turns {
		if turn.CreatedAt.After(latest[turn.ConversationID]) {
			latest[turn.ConversationID] = turn.CreatedAt
		}
	}

	kept := s.turns[:0]
	for _, turn := range s.turns {
		if latest[turn.ConversationID].After(cutoff) {
			kept = append(kept, turn)
		}
	}
	s.turns = kept
	return nil
}

// Actions implements core.RelationalStore.
func (s *Store) Actions(_ context.Context) ([]core.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actions := make([]core.Action, 0, len(s.actions))
	for _, action := range s.actions {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].Name < actions[j].Name })
	return actions, nil
}

// Action implements core.RelationalStore.
func (s *Store) Action(_ context.Context, id string) (core.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[id]
	if !ok {
		return core.Action{}, core.ErrNotFound
	}
	return action, nil
}

// CreateAction implements core.RelationalStore.
func (s *Store) CreateAction(_ context.Context, action core.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ID] = action
	return nil
}

// Memories implements core.RelationalStore.
func (s *Store) Memories(_ context.Context) ([]core.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memories := make([]core.Memory, 0, len(s.memories))
	for _, memory := range s.memories {
		memories = append(memories, memory)
	}
	sort.Slice(memories, func(i, j int) bool { return memories[i].Title < memories[j].Title })
	return memories, nil
}

// Memory implements core.RelationalStore.
func (s *Store) Memory(_ context.Context, id string) (core.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memory, ok := s.memories[id]
	if !ok {
		return core.Memory{}, core.ErrNotFound
	}
	return memory, nil
}

// CreateMemory implements core.RelationalStore.
func (s *Store) CreateMemory(_ context.Context, memory core.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[memory.ID] = memory
	return nil
}

type vectorEntry struct {
	id      string
	vector  []float32
	payload map[string]any
}

// Index is an in-memory core.VectorIndex using exact cosine similarity.
type Index struct {
	mu          sync.RWMutex
	collections map[string]map[string]vectorEntry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{collections: make(map[string]map[string]vectorEntry)}
}

// CreateCollection implements core.VectorIndex. The dimension is not
// enforced; an exact in-memory index has no need for it.
func (x *Index) CreateCollection(_ context.Context, name string, _ int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.collections[name]; !ok {
		x.collections[name] = make(map[string]vectorEntry)
	}
	return nil
}

// DeleteCollection implements core.VectorIndex.
func (x *Index) DeleteCollection(_ context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.collections, name)
	return nil
}

// Upsert implements core.VectorIndex. Unknown collections are created on
// first write.
func (x *Index) Upsert(_ context.Context, collection, id string, vector []float32, payload map[string]any) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	entries, ok := x.collections[collection]
	if !ok {
		entries = make(map[string]vectorEntry)
		x.collections[collection] = entries
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	entries[id] = vectorEntry{id: id, vector: stored, payload: payload}
	return nil
}

// Search implements core.VectorIndex.
func (x *Index) Search(_ context.Context, collection string, query core.VectorQuery) ([]core.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	entries := x.collections[collection]
	hits := make([]core.VectorHit, 0, len(entries))
	for _, entry := range entries {
		hit := core.VectorHit{ID: entry.id, Score: cosine(query.Vector, entry.vector)}
		if query.WithPayload {
			hit.Payload = entry.payload
		}
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if query.Limit > 0 && len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	return hits, nil
}

// Delete implements core.VectorIndex.
func (x *Index) Delete(_ context.Context, collection, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if entries, ok := x.collections[collection]; ok {
		delete(entries, id)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
