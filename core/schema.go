package core

import (
	"encoding/json"
	"fmt"
)

// ActionSchema is the typed description of an action's callable surface,
// parsed and validated once when the action is registered. Parameters is a
// minimal JSON Schema object ("type"/"properties"/"required").
type ActionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Valid reports whether the schema carries the minimum an action needs to be
// described to a model.
func (s ActionSchema) Valid() bool { return s.Name != "" && s.Description != "" }

// ParseActionSchema decodes a stored JSON schema blob into its typed form.
// An empty or undecodable blob returns an error; callers decide whether that
// degrades to a placeholder (read path) or rejects the write (write path).
func ParseActionSchema(raw []byte) (ActionSchema, error) {
	var s ActionSchema
	if len(raw) == 0 {
		return s, fmt.Errorf("empty action schema")
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ActionSchema{}, fmt.Errorf("decode action schema: %w", err)
	}
	if !s.Valid() {
		return ActionSchema{}, fmt.Errorf("action schema missing name or description")
	}
	return s, nil
}
