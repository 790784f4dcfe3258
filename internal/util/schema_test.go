package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exampleShape struct {
	Name     string   `json:"name" description:"a name"`
	Count    int      `json:"count"`
	Optional *string  `json:"optional,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	hidden   string
	Skipped  string   `json:"-"`
}

func TestSchemaFromStruct(t *testing.T) {
	schema := SchemaFromStruct(exampleShape{})

	assert.Equal(t, "object", schema["type"])
	properties := schema["properties"].(map[string]any)
	assert.Contains(t, properties, "name")
	assert.Contains(t, properties, "count")
	assert.Contains(t, properties, "optional")
	assert.Contains(t, properties, "tags")
	assert.NotContains(t, properties, "hidden")
	assert.NotContains(t, properties, "Skipped")

	name := properties["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "a name", name["description"])
	assert.Equal(t, "integer", properties["count"].(map[string]any)["type"])
	assert.Equal(t, "array", properties["tags"].(map[string]any)["type"])

	required := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"name", "count"}, required)
}

func TestSchemaFromStruct_NonStruct(t *testing.T) {
	schema := SchemaFromStruct(42)
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestSchemaFromStruct_Pointer(t *testing.T) {
	schema := SchemaFromStruct(&exampleShape{})
	properties := schema["properties"].(map[string]any)
	assert.Contains(t, properties, "name")
}

func TestValidateAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sessionId": map[string]any{"type": "string"},
			"count":     map[string]any{"type": "integer"},
			"ratio":     map[string]any{"type": "number"},
			"flags":     map[string]any{"type": "array"},
		},
		"required": []any{"sessionId"},
	}

	t.Run("valid params", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{
			"sessionId": "s-1",
			"count":     float64(3), // JSON numbers decode as float64
			"ratio":     0.5,
			"flags":     []any{"a"},
		}, schema)
		assert.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{"count": float64(1)}, schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sessionId")
	})

	t.Run("type mismatch", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{"sessionId": 42}, schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sessionId")
	})

	t.Run("fractional value is not an integer", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{"sessionId": "s", "count": 1.5}, schema)
		assert.Error(t, err)
	})

	t.Run("unknown extras allowed", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{"sessionId": "s", "extra": true}, schema)
		assert.NoError(t, err)
	})

	t.Run("nil values pass", func(t *testing.T) {
		err := ValidateAgainstSchema(map[string]any{"sessionId": "s", "count": nil}, schema)
		assert.NoError(t, err)
	})
}
