// Package util holds internal helpers shared across mnemo packages without
// committing to public API stability.
package util

import (
	"fmt"
	"reflect"
	"strings"
)

// SchemaFromStruct derives a minimal JSON Schema object from a Go struct via
// reflection. Field names follow json tags; `description` tags become schema
// descriptions; fields without omitempty and non-pointer types are required.
// Used to generate the format instructions for structured model output.
func SchemaFromStruct(v any) map[string]any {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	properties := make(map[string]any)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		tagParts := strings.Split(jsonTag, ",")
		if tagParts[0] != "" {
			name = tagParts[0]
		}

		fieldSchema := map[string]any{"type": jsonType(field.Type)}
		if desc := field.Tag.Get("description"); desc != "" {
			fieldSchema["description"] = desc
		}
		properties[name] = fieldSchema

		if !tagHasOption(tagParts, "omitempty") && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateAgainstSchema checks extracted parameters against a JSON Schema
// object: required fields must be present and typed fields must match.
// Unknown extra fields are allowed.
func ValidateAgainstSchema(params map[string]any, schema map[string]any) error {
	required, _ := schema["required"].([]any)
	for _, entry := range required {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		if _, present := params[name]; !present {
			return fmt.Errorf("required parameter %q is missing", name)
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range params {
		propSchema, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		want, _ := propSchema["type"].(string)
		if !matchesJSONType(value, want) {
			return fmt.Errorf("parameter %q: expected %s, got %T", name, want, value)
		}
	}
	return nil
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

func tagHasOption(tagParts []string, option string) bool {
	for _, part := range tagParts[1:] {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}

func matchesJSONType(value any, want string) bool {
	if value == nil {
		return true
	}
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON numbers decode as float64
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
