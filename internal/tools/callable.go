package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"llm_proxy/internal/models"
)

// CallableTool is a tool ready for an orchestration loop to invoke. Invoke
// never returns an error: failures come back as formatted result strings so
// a bad tool cannot break the conversation.
type CallableTool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Invoke(args map[string]any) string
}

// BuildInputSchema turns a parameter list into a JSON schema object.
// Required parameters carry no default; optional ones advertise theirs.
func BuildInputSchema(params []models.ToolParameter) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(params))
	var required []string

	for _, p := range params {
		prop := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		} else if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		properties[p.Name] = prop
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// normalizeType maps loosely written type names onto JSON schema types.
// Unknown names fall back to string.
func normalizeType(name string) string {
	switch name {
	case "str", "string":
		return "string"
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "list", "array", "table":
		return "array"
	case "dict", "object", "map":
		return "object"
	default:
		return "string"
	}
}
