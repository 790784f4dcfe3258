// Package action manages the registered action set and the selection
// pipeline that executes one of them against a remote webhook.
package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/recall"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry owns action registration: relational persistence plus the vector
// index entry that makes the action discoverable by recall.
type Registry struct {
	store    core.RelationalStore
	index    core.VectorIndex
	embedder core.Embedder
	logger   logging.Logger

	// bootstrapMu serializes Bootstrap so concurrent first requests cannot
	// seed the default set twice.
	bootstrapMu sync.Mutex
}

// NewRegistry constructs a Registry.
func NewRegistry(store core.RelationalStore, index core.VectorIndex, embedder core.Embedder, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{store: store, index: index, embedder: embedder, logger: opts.Logger}
}

// Add registers an action: validates its schema, persists the record and
// indexes "name: description" for vector discovery. An invalid schema is
// rejected at write time so selection never meets a malformed one.
func (r *Registry) Add(ctx context.Context, def Definition) (core.Action, error) {
	if !def.Schema.Valid() {
		return core.Action{}, fmt.Errorf("action schema %q: missing name or description", def.Schema.Name)
	}

	id := def.ID
	if id == "" {
		id = uuid.NewString()
	}
	category := def.Category
	if category == "" {
		category = "default"
	}

	act := core.Action{
		ID:         id,
		Name:       def.Schema.Name,
		Schema:     def.Schema,
		WebhookURL: def.WebhookURL,
		Tags:       def.Tags,
		Active:     true,
		Category:   category,
	}
	if err := r.store.CreateAction(ctx, act); err != nil {
		return core.Action{}, fmt.Errorf("create action %q: %w", act.Name, err)
	}

	document := act.Name + ": " + def.Schema.Description
	vector, err := r.embedder.Embed(ctx, document)
	if err != nil {
		return core.Action{}, fmt.Errorf("embed action %q: %w", act.Name, err)
	}
	payload := map[string]any{"name": act.Name, "tags": act.Tags, "url": act.WebhookURL}
	if err := r.index.Upsert(ctx, recall.CollectionActions, id, vector, payload); err != nil {
		return core.Action{}, fmt.Errorf("index action %q: %w", act.Name, err)
	}

	r.logger.Info("action registered", "id", id, "name", act.Name)
	return act, nil
}

// Find returns a registered action by id.
func (r *Registry) Find(ctx context.Context, id string) (core.Action, error) {
	return r.store.Action(ctx, id)
}

// Bootstrap seeds the default action set when the store holds no actions at
// all. Safe to call on every request; it does nothing once any action exists.
func (r *Registry) Bootstrap(ctx context.Context) error {
	r.bootstrapMu.Lock()
	defer r.bootstrapMu.Unlock()

	existing, err := r.store.Actions(ctx)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	r.logger.Info("action registry is empty, seeding defaults")
	for _, def := range Defaults() {
		if _, err := r.Add(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
