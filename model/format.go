package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"mnemo/core"
	"mnemo/internal/util"
)

// FormatInstructions generates the machine-readable output contract injected
// into every structured-output prompt: a JSON Schema reflected from the Go
// shape the caller expects back.
func FormatInstructions(prototype any) string {
	schema := util.SchemaFromStruct(prototype)
	encoded, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Reflection-derived schemas are always marshalable; this guards
		// against exotic prototypes only.
		encoded = []byte(`{"type": "object"}`)
	}
	var b strings.Builder
	b.WriteString("Respond ONLY with a single JSON object, no prose before or after it. ")
	b.WriteString("The object must conform to this JSON Schema:\n\n```json\n")
	b.Write(encoded)
	b.WriteString("\n```")
	return b.String()
}

// Decode parses structured model output into T. Models habitually wrap JSON
// in markdown fences or pad it with commentary, so the decoder extracts the
// outermost JSON object before unmarshalling. Any failure is returned as a
// core.OutputParseError carrying the raw text.
func Decode[T any](raw string) (T, error) {
	var out T
	candidate := extractJSON(raw)
	if candidate == "" {
		return out, &core.OutputParseError{Raw: raw, Err: fmt.Errorf("no JSON object in model output")}
	}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return out, &core.OutputParseError{Raw: raw, Err: err}
	}
	return out, nil
}

// extractJSON strips markdown fences and surrounding chatter, returning the
// outermost {...} span or "" when none exists.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if fenced := strings.Index(text, "```"); fenced >= 0 {
		rest := text[fenced+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
