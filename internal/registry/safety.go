package registry

import (
	"strings"

	"github.com/yuin/gopher-lua/parse"
)

// dangerousPatterns are substrings that disqualify custom tool source. The
// match is case-insensitive and intentionally over-broad; the screen is a
// speed bump, the sandboxed executor is the real confinement.
var dangerousPatterns = []string{
	"os.execute",
	"os.exit",
	"os.getenv",
	"os.remove",
	"os.rename",
	"os.tmpname",
	"io.",
	"require",
	"dofile",
	"loadfile",
	"loadstring",
	"load(",
	"package.",
	"debug.",
	"collectgarbage",
	"popen",
	"socket",
	"coroutine.wrap",
}

// ScreenToolSource statically checks custom tool source text: it must be
// non-empty, parse as Lua and avoid the dangerous patterns. Returns
// ValidationError for syntax problems and SecurityError for pattern hits.
func ScreenToolSource(name, source string) error {
	if strings.TrimSpace(source) == "" {
		return NewValidationError("function source must not be empty")
	}

	if _, err := parse.Parse(strings.NewReader(source), name); err != nil {
		return NewValidationError("function source has a syntax error: %v", err)
	}

	lowered := strings.ToLower(source)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return &SecurityError{Pattern: pattern}
		}
	}

	return nil
}
