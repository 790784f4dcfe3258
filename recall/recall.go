// Package recall issues vector-similarity queries and resolves the hits back
// to full records through the relational store. Hits whose ids no longer
// resolve are stale index entries and are dropped silently.
package recall

import (
	"context"
	"errors"

	"mnemo/core"
	"mnemo/logging"
)

// Collection names used by the pipeline.
const (
	CollectionMemories  = "memories"
	CollectionNotes     = "notes"
	CollectionResources = "resources"
	CollectionActions   = "actions"
)

// ScoredAction pairs a resolved action with its vector similarity score.
type ScoredAction struct {
	Action core.Action
	Score  float64
}

// Options configure a Recaller.
type Options struct {
	Logger logging.Logger
}

// Recaller performs recall over one vector index and one relational store.
type Recaller struct {
	index  core.VectorIndex
	store  core.RelationalStore
	logger logging.Logger
}

// New constructs a Recaller.
func New(index core.VectorIndex, store core.RelationalStore, optFns ...func(o *Options)) *Recaller {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Recaller{index: index, store: store, logger: opts.Logger}
}

// Search runs a raw nearest-neighbour query, descending by score. Tie order
// is whatever the index produces; no secondary key is imposed.
func (r *Recaller) Search(ctx context.Context, collection string, vector []float32, limit int) ([]core.VectorHit, error) {
	hits, err := r.index.Search(ctx, collection, core.VectorQuery{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("vector search completed", "collection", collection, "hits", len(hits))
	return hits, nil
}

// Memories recalls memory candidates: vector search followed by relational
// resolve, preserving hit order.
func (r *Recaller) Memories(ctx context.Context, collection string, vector []float32, limit int) ([]core.Candidate, error) {
	hits, err := r.Search(ctx, collection, vector, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]core.Candidate, 0, len(hits))
	for _, hit := range hits {
		memory, err := r.store.Memory(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				r.logger.Debug("stale memory hit dropped", "id", hit.ID)
				continue
			}
			return nil, err
		}
		if !memory.Active {
			continue
		}
		candidates = append(candidates, memory.AsCandidate(hit.Score))
	}
	return candidates, nil
}

// Actions recalls action candidates from the actions collection, preserving
// hit order.
func (r *Recaller) Actions(ctx context.Context, vector []float32, limit int) ([]ScoredAction, error) {
	hits, err := r.Search(ctx, CollectionActions, vector, limit)
	if err != nil {
		return nil, err
	}

	actions := make([]ScoredAction, 0, len(hits))
	for _, hit := range hits {
		action, err := r.store.Action(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				r.logger.Debug("stale action hit dropped", "id", hit.ID)
				continue
			}
			return nil, err
		}
		if !action.Active {
			continue
		}
		actions = append(actions, ScoredAction{Action: action, Score: hit.Score})
	}
	return actions, nil
}
