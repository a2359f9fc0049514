package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//
// Custom model configuration
//

const (
	// DefaultModelID is the fixed ID of the bootstrap model seeded on first run.
	DefaultModelID = "a1b2c3d4"

	// DefaultModelName is the name of the bootstrap model.
	DefaultModelName = "default-model"

	// InitialVersion is assigned to a model created without an explicit version.
	InitialVersion = "1.0.0"
)

var (
	namePattern    = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// AllowedParams is the whitelist of sampling parameter overrides a model may
// carry. Anything else is dropped when building an effective config.
var AllowedParams = []string{
	"temperature",
	"max_tokens",
	"top_p",
	"stop",
	"presence_penalty",
	"frequency_penalty",
}

// RagPolicy controls retrieval for a model.
type RagPolicy struct {
	Enabled    bool   `json:"enabled"`
	TopK       int    `json:"top_k"`
	Collection string `json:"collection,omitempty"`
}

// Model is a named, versioned configuration bundle. The top-level row holds
// the denormalized current-version fields; Versions holds the full history.
type Model struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Version        string     `db:"version" json:"version"`
	Enabled        bool       `db:"enabled" json:"enabled"`
	BaseModel      string     `db:"base_model" json:"base_model,omitempty"`
	Params         JSONB      `db:"params" json:"params,omitempty"`
	Rag            RagJSONB   `db:"rag_policy" json:"rag_policy"`
	ToolNames      StringList `db:"tool_names" json:"tool_names"`
	ActiveVersions StringList `db:"active_versions" json:"active_versions"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// Versions is loaded separately from the version table.
	Versions map[string]*ModelVersion `db:"-" json:"version_history,omitempty"`
}

// ModelVersion is a frozen snapshot of a model at a given version.
type ModelVersion struct {
	ModelID     string     `db:"model_id" json:"-"`
	Version     string     `db:"version" json:"version"`
	Enabled     bool       `db:"enabled" json:"enabled"`
	BaseModel   string     `db:"base_model" json:"base_model,omitempty"`
	Params      JSONB      `db:"params" json:"params,omitempty"`
	Rag         RagJSONB   `db:"rag_policy" json:"rag_policy"`
	ToolNames   StringList `db:"tool_names" json:"tool_names"`
	Description string     `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ActiveModelEntry is one row of the ordered active-model set.
// Lower priority sorts first.
type ActiveModelEntry struct {
	ModelID   string    `db:"model_id" json:"model_id"`
	Priority  int       `db:"priority" json:"priority"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizeName trims and lowercases a model or tool name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName normalizes a name and checks length and charset.
// Returns the canonical form.
func ValidateName(name string) (string, error) {
	canonical := NormalizeName(name)
	if len(canonical) < 2 || len(canonical) > 64 {
		return "", fmt.Errorf("name must be between 2 and 64 characters")
	}
	if !namePattern.MatchString(canonical) {
		return "", fmt.Errorf("name must start with a letter and contain only lowercase letters, digits, hyphens and underscores")
	}
	return canonical, nil
}

// ValidateVersion checks that a version string is three dot-separated numbers.
func ValidateVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("version must be in MAJOR.MINOR.PATCH format")
	}
	return nil
}

// CompareVersions compares two versions numerically, component by component.
// Returns -1, 0 or 1. Missing or malformed components compare as 0.
func CompareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < 3; i++ {
		var av, bv int
		if i < len(aParts) {
			av, _ = strconv.Atoi(aParts[i])
		}
		if i < len(bParts) {
			bv, _ = strconv.Atoi(bParts[i])
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// ParseIdentifier splits a client-supplied model identifier into name and
// optional version. The split happens on the first "@"; the name part is
// normalized.
func ParseIdentifier(identifier string) (name, version string) {
	name, version, found := strings.Cut(identifier, "@")
	name = NormalizeName(name)
	if !found {
		return name, ""
	}
	return name, strings.TrimSpace(version)
}

// CurrentVersionView synthesizes a version snapshot from the model's
// denormalized current fields. Used when the current version predates the
// version table.
func (m *Model) CurrentVersionView() *ModelVersion {
	return &ModelVersion{
		ModelID:   m.ID,
		Version:   m.Version,
		Enabled:   m.Enabled,
		BaseModel: m.BaseModel,
		Params:    m.Params,
		Rag:       m.Rag,
		ToolNames: m.ToolNames,
		CreatedAt: m.CreatedAt,
	}
}

// VersionActive reports whether the given version is in the active set.
func (m *Model) VersionActive(version string) bool {
	for _, v := range m.ActiveVersions {
		if v == version {
			return true
		}
	}
	return false
}

// SortVersionsDesc sorts version strings newest-first by numeric comparison.
func SortVersionsDesc(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) > 0
	})
}

// FilterParams drops any parameter not on the whitelist.
func FilterParams(params JSONB) JSONB {
	if params == nil {
		return nil
	}
	filtered := make(JSONB, len(params))
	for _, key := range AllowedParams {
		if v, ok := params[key]; ok {
			filtered[key] = v
		}
	}
	return filtered
}
