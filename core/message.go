package core

// Role identifies the author of a message. The set is closed: history
// reconstruction and prompt assembly only ever produce these three values.
type Role string

const (
	// RoleSystem carries instructions and grounding context for the model.
	RoleSystem Role = "system"
	// RoleHuman is the end user's side of the conversation.
	RoleHuman Role = "human"
	// RoleAssistant is the model's side of the conversation.
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged text unit of a conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// System builds a system message.
func System(text string) Message { return Message{Role: RoleSystem, Text: text} }

// Human builds a user message.
func Human(text string) Message { return Message{Role: RoleHuman, Text: text} }

// Assistant builds an assistant message.
func Assistant(text string) Message { return Message{Role: RoleAssistant, Text: text} }
