package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

//
// Tool definitions
//

// Builtin tool IDs are fixed so redeployments keep stable references.
const (
	BuiltinDatetimeToolID = "c9d0e1f2"
	BuiltinKBSearchToolID = "f3a4b5c6"

	BuiltinDatetimeToolName = "get_datetime"
	BuiltinKBSearchToolName = "search_knowledge_base"
)

// ToolParameter describes one input parameter of a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// ToolParameters is a []ToolParameter stored as a jsonb array.
type ToolParameters []ToolParameter

func (p ToolParameters) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal([]ToolParameter{})
	}
	return json.Marshal([]ToolParameter(p))
}

func (p *ToolParameters) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("ToolParameters: expected []byte, got %T", value)
	}

	if len(b) == 0 {
		*p = nil
		return nil
	}

	return json.Unmarshal(b, p)
}

// ToolDefinition is a registered tool. Builtins are implemented in Go and
// carry no source; custom tools carry Lua source synthesized at resolution
// time.
type ToolDefinition struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Category    string         `db:"category" json:"category,omitempty"`
	Enabled     bool           `db:"enabled" json:"enabled"`
	IsBuiltin   bool           `db:"is_builtin" json:"is_builtin"`
	Source      string         `db:"source" json:"source,omitempty"`
	Parameters  ToolParameters `db:"parameters" json:"parameters"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSource reports whether the tool carries synthesizable source text.
func (t *ToolDefinition) HasSource() bool {
	return t.Source != ""
}
