// Package postgres implements the relational store on GORM and the vector
// index on the pgvector extension, both over a single Postgres database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mnemo/core"
	"mnemo/logging"
)

type turnRow struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	ConversationID string    `gorm:"index"`
	Question       string    `gorm:"type:text"`
	Answer         string    `gorm:"type:text"`
	Title          string
	CreatedAt      time.Time `gorm:"index"`
}

func (turnRow) TableName() string { return "turns" }

type actionRow struct {
	ID         string         `gorm:"primaryKey;type:uuid"`
	Name       string         `gorm:"uniqueIndex"`
	Schema     datatypes.JSON `gorm:"type:jsonb"`
	WebhookURL string
	Tags       datatypes.JSON `gorm:"type:jsonb"`
	Active     bool
	Category   string
	CreatedAt  time.Time
}

func (actionRow) TableName() string { return "actions" }

type memoryRow struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Title     string
	Content   string         `gorm:"type:text"`
	Tags      datatypes.JSON `gorm:"type:jsonb"`
	Active    bool
	CreatedAt time.Time
}

func (memoryRow) TableName() string { return "memories" }

type embeddingRow struct {
	Collection string          `gorm:"primaryKey;index:idx_embeddings_collection"`
	RecordID   string          `gorm:"primaryKey;type:uuid;column:record_id"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)"`
	Payload    datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

func (embeddingRow) TableName() string { return "embeddings" }

// Options configure the Postgres store.
type Options struct {
	Logger logging.Logger
	// Migrate runs schema auto-migration on Open.
	Migrate bool
}

// Store implements core.RelationalStore and core.VectorIndex over one
// Postgres database with the pgvector extension installed.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open connects to Postgres and optionally migrates the schema.
func Open(dsn string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}, Migrate: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := &Store{db: db, logger: opts.Logger}
	if opts.Migrate {
		if err := store.migrate(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewFromDB wraps an existing GORM handle. For tests.
func NewFromDB(db *gorm.DB, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{db: db, logger: opts.Logger}
}

func (s *Store) migrate() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := s.db.AutoMigrate(&turnRow{}, &actionRow{}, &memoryRow{}, &embeddingRow{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Turns implements core.RelationalStore.
func (s *Store) Turns(ctx context.Context, conversationID string, limit int) ([]core.Turn, error) {
	var rows []turnRow
	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	turns := make([]core.Turn, len(rows))
	for i, row := range rows {
		turns[len(rows)-1-i] = row.toTurn()
	}
	return turns, nil
}

// FirstTurn implements core.RelationalStore.
func (s *Store) FirstTurn(ctx context.Context, conversationID string) (core.Turn, error) {
	var row turnRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Turn{}, core.ErrNotFound
	}
	if err != nil {
		return core.Turn{}, err
	}
	return row.toTurn(), nil
}

// CreateTurn implements core.RelationalStore.
func (s *Store) CreateTurn(ctx context.Context, turn core.Turn) error {
	row := turnRow{
		ID:             turn.ID,
		ConversationID: turn.ConversationID,
		Question:       turn.Question,
		Answer:         turn.Answer,
		Title:          turn.Title,
		CreatedAt:      turn.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// DeleteInactiveConversations implements core.RelationalStore.
func (s *Store) DeleteInactiveConversations(ctx context.Context, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	return s.db.WithContext(ctx).
		Where("conversation_id IN (?)", s.db.Model(&turnRow{}).
			Select("conversation_id").
			Group("conversation_id").
			Having("MAX(created_at) < ?", cutoff)).
		Delete(&turnRow{}).Error
}

// Actions implements core.RelationalStore.
func (s *Store) Actions(ctx context.Context) ([]core.Action, error) {
	var rows []actionRow
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	actions := make([]core.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, row.toAction(s.logger))
	}
	return actions, nil
}

// Action implements core.RelationalStore.
func (s *Store) Action(ctx context.Context, id string) (core.Action, error) {
	var row actionRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Action{}, core.ErrNotFound
	}
	if err != nil {
		return core.Action{}, err
	}
	return row.toAction(s.logger), nil
}

// CreateAction implements core.RelationalStore.
func (s *Store) CreateAction(ctx context.Context, action core.Action) error {
	schema, err := json.Marshal(action.Schema)
	if err != nil {
		return fmt.Errorf("encode action schema: %w", err)
	}
	tags, err := json.Marshal(action.Tags)
	if err != nil {
		return fmt.Errorf("encode action tags: %w", err)
	}
	row := actionRow{
		ID:         action.ID,
		Name:       action.Name,
		Schema:     schema,
		WebhookURL: action.WebhookURL,
		Tags:       tags,
		Active:     action.Active,
		Category:   action.Category,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Memories implements core.RelationalStore.
func (s *Store) Memories(ctx context.Context) ([]core.Memory, error) {
	var rows []memoryRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	memories := make([]core.Memory, 0, len(rows))
	for _, row := range rows {
		memories = append(memories, row.toMemory())
	}
	return memories, nil
}

// Memory implements core.RelationalStore.
func (s *Store) Memory(ctx context.Context, id string) (core.Memory, error) {
	var row memoryRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Memory{}, core.ErrNotFound
	}
	if err != nil {
		return core.Memory{}, err
	}
	return row.toMemory(), nil
}

// CreateMemory implements core.RelationalStore.
func (s *Store) CreateMemory(ctx context.Context, memory core.Memory) error {
	tags, err := json.Marshal(memory.Tags)
	if err != nil {
		return fmt.Errorf("encode memory tags: %w", err)
	}
	row := memoryRow{
		ID:        memory.ID,
		Title:     memory.Title,
		Content:   memory.Content,
		Tags:      tags,
		Active:    memory.Active,
		CreatedAt: memory.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// CreateCollection implements core.VectorIndex. Collections are rows in one
// shared table, so creation is a no-op beyond the migration.
func (s *Store) CreateCollection(_ context.Context, _ string, _ int) error {
	return nil
}

// DeleteCollection implements core.VectorIndex.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("collection = ?", name).Delete(&embeddingRow{}).Error
}

// Upsert implements core.VectorIndex.
func (s *Store) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	row := embeddingRow{
		Collection: collection,
		RecordID:   id,
		Embedding:  pgvector.NewVector(vector),
		Payload:    encoded,
		CreatedAt:  time.Now(),
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// Search implements core.VectorIndex. Cosine distance in pgvector is
// 1 - cosine_similarity, so similarity is computed as 1 - (embedding <=> q).
func (s *Store) Search(ctx context.Context, collection string, query core.VectorQuery) ([]core.VectorHit, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		RecordID   string
		Payload    datatypes.JSON
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(query.Vector)
	err := s.db.WithContext(ctx).
		Table("embeddings").
		Select("record_id, payload, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("collection = ?", collection).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]core.VectorHit, 0, len(results))
	for _, res := range results {
		hit := core.VectorHit{ID: res.RecordID, Score: res.Similarity}
		if query.WithPayload && len(res.Payload) > 0 {
			var payload map[string]any
			if err := json.Unmarshal(res.Payload, &payload); err == nil {
				hit.Payload = payload
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete implements core.VectorIndex.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		Delete(&embeddingRow{}).Error
}

func (r turnRow) toTurn() core.Turn {
	return core.Turn{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Question:       r.Question,
		Answer:         r.Answer,
		Title:          r.Title,
		CreatedAt:      r.CreatedAt,
	}
}

func (r actionRow) toAction(logger logging.Logger) core.Action {
	action := core.Action{
		ID:         r.ID,
		Name:       r.Name,
		WebhookURL: r.WebhookURL,
		Active:     r.Active,
		Category:   r.Category,
	}
	if len(r.Schema) > 0 {
		schema, err := core.ParseActionSchema(r.Schema)
		if err != nil {
			logger.Warn("stored action schema does not parse", "id", r.ID, "error", err)
		} else {
			action.Schema = schema
		}
	}
	if len(r.Tags) > 0 {
		if err := json.Unmarshal(r.Tags, &action.Tags); err != nil {
			logger.Warn("stored action tags do not parse", "id", r.ID, "error", err)
		}
	}
	return action
}

func (r memoryRow) toMemory() core.Memory {
	memory := core.Memory{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Tags) > 0 {
		_ = json.Unmarshal(r.Tags, &memory.Tags)
	}
	return memory
}
