package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

//
// JSONB helper
//

// JSONB is a helper for Postgres jsonb columns.
// Backed by map[string]any and works with sqlx / database/sql.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("JSONB: expected []byte, got %T", value)
	}

	if len(b) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(b, j)
}

//
// StringList helper
//

// StringList is a []string stored as a jsonb array.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(s))
}

func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("StringList: expected []byte, got %T", value)
	}

	if len(b) == 0 {
		*s = nil
		return nil
	}

	return json.Unmarshal(b, s)
}

//
// RagJSONB helper
//

// RagJSONB stores a RagPolicy in a jsonb column.
type RagJSONB RagPolicy

func (r RagJSONB) Value() (driver.Value, error) {
	return json.Marshal(RagPolicy(r))
}

func (r *RagJSONB) Scan(value any) error {
	if value == nil {
		*r = RagJSONB{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("RagJSONB: expected []byte, got %T", value)
	}

	if len(b) == 0 {
		*r = RagJSONB{}
		return nil
	}

	return json.Unmarshal(b, (*RagPolicy)(r))
}
