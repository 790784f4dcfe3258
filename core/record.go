package core

import "time"

// Turn is one question/answer exchange within a conversation. Turns are
// immutable once persisted; Title is set on the first turn of a conversation
// and copied verbatim onto every later one.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

// Memory is a stored piece of long-term knowledge about the user or the
// assistant, retrievable by vector similarity.
type Memory struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Action is a named remote capability invocable via a webhook URL. Its
// parameter surface is described by a typed schema validated at registration
// time; rows whose stored schema no longer parses carry a zero Schema.
type Action struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Schema     ActionSchema `json:"schema"`
	WebhookURL string       `json:"webhook_url"`
	Tags       []string     `json:"tags"`
	Active     bool         `json:"active"`
	Category   string       `json:"category"`
}

// VectorHit is a single nearest-neighbour result: record id plus similarity
// score. Hits are ephemeral; they exist only between a vector search and the
// relational resolve that follows it.
type VectorHit struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// CandidateKind discriminates what a candidate was resolved from.
type CandidateKind int

const (
	// KindMemory marks a candidate backed by a Memory record.
	KindMemory CandidateKind = iota
	// KindAction marks a candidate backed by an Action record.
	KindAction
)

// Candidate is the flat, request-scoped view of a retrieved record that the
// relevance filter and response composer operate on. It carries the vector
// similarity score it was recalled with.
type Candidate struct {
	Kind        CandidateKind
	ID          string
	Title       string
	Content     string
	Context     string
	Tags        []string
	VectorScore float64
}

// AsCandidate converts a memory into its candidate view.
func (m Memory) AsCandidate(score float64) Candidate {
	return Candidate{
		Kind:        KindMemory,
		ID:          m.ID,
		Title:       m.Title,
		Content:     m.Content,
		Tags:        m.Tags,
		VectorScore: score,
	}
}

// AsCandidate converts an action into its candidate view. Content is the
// schema description so the relevance filter judges what the action does,
// not its parameter plumbing.
func (a Action) AsCandidate(score float64) Candidate {
	return Candidate{
		Kind:        KindAction,
		ID:          a.ID,
		Title:       a.Name,
		Content:     a.Schema.Description,
		Tags:        a.Tags,
		VectorScore: score,
	}
}
