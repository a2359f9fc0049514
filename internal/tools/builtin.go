package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"llm_proxy/internal/models"
)

// Document is one retrieval hit.
type Document struct {
	Source  string
	Content string
}

// Retriever searches a knowledge base. The real backend is pluggable; the
// proxy only depends on this surface.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Document, error)
}

// BuiltinDefinitions returns the tool rows seeded into the store at startup.
func BuiltinDefinitions() []*models.ToolDefinition {
	now := time.Now().UTC()
	return []*models.ToolDefinition{
		{
			ID:          models.BuiltinDatetimeToolID,
			Name:        models.BuiltinDatetimeToolName,
			Description: "Get the current date and time. Accepts an optional Go layout string.",
			Category:    "builtin",
			Enabled:     true,
			IsBuiltin:   true,
			Parameters: models.ToolParameters{
				{Name: "format", Type: "string", Description: "Go time layout; defaults to RFC 3339", Required: false, Default: time.RFC3339},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          models.BuiltinKBSearchToolID,
			Name:        models.BuiltinKBSearchToolName,
			Description: "Search the knowledge base for passages relevant to a query.",
			Category:    "builtin",
			Enabled:     true,
			IsBuiltin:   true,
			Parameters: models.ToolParameters{
				{Name: "query", Type: "string", Description: "search query", Required: true},
				{Name: "top_k", Type: "integer", Description: "number of passages to return", Required: false, Default: 4},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Builtins returns the callable builtin tools keyed by name.
func Builtins(retriever Retriever) map[string]CallableTool {
	return map[string]CallableTool{
		models.BuiltinDatetimeToolName: NewDatetimeTool(),
		models.BuiltinKBSearchToolName: NewKnowledgeSearchTool(retriever),
	}
}

//
// get_datetime
//

// DatetimeTool reports the current date and time.
type DatetimeTool struct {
	schema *jsonschema.Schema
	now    func() time.Time
}

// NewDatetimeTool creates the datetime builtin.
func NewDatetimeTool() *DatetimeTool {
	def := BuiltinDefinitions()[0]
	return &DatetimeTool{
		schema: BuildInputSchema(def.Parameters),
		now:    time.Now,
	}
}

func (t *DatetimeTool) Name() string { return models.BuiltinDatetimeToolName }

func (t *DatetimeTool) Description() string {
	return "Get the current date and time. Accepts an optional Go layout string."
}
func (t *DatetimeTool) InputSchema() *jsonschema.Schema { return t.schema }

func (t *DatetimeTool) Invoke(args map[string]any) string {
	layout := time.RFC3339
	if v, ok := args["format"].(string); ok && v != "" {
		layout = v
	}
	return t.now().Format(layout)
}

//
// search_knowledge_base
//

// KnowledgeSearchTool searches a knowledge base through a Retriever.
type KnowledgeSearchTool struct {
	retriever Retriever
	schema    *jsonschema.Schema
	timeout   time.Duration
}

// NewKnowledgeSearchTool creates the knowledge base search builtin.
func NewKnowledgeSearchTool(retriever Retriever) *KnowledgeSearchTool {
	def := BuiltinDefinitions()[1]
	return &KnowledgeSearchTool{
		retriever: retriever,
		schema:    BuildInputSchema(def.Parameters),
		timeout:   defaultInvokeTimeout,
	}
}

func (t *KnowledgeSearchTool) Name() string { return models.BuiltinKBSearchToolName }

func (t *KnowledgeSearchTool) Description() string {
	return "Search the knowledge base for passages relevant to a query."
}
func (t *KnowledgeSearchTool) InputSchema() *jsonschema.Schema { return t.schema }

func (t *KnowledgeSearchTool) Invoke(args map[string]any) string {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "Error executing tool: query must not be empty"
	}

	topK := 4
	switch v := args["top_k"].(type) {
	case int:
		topK = v
	case float64:
		topK = int(v)
	}
	if topK < 1 {
		topK = 1
	}

	if t.retriever == nil {
		return "Error executing tool: no knowledge base is configured"
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	docs, err := t.retriever.Search(ctx, query, topK)
	if err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	if len(docs) == 0 {
		return "No relevant passages found."
	}

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if doc.Source != "" {
			fmt.Fprintf(&b, "[%s] ", doc.Source)
		}
		b.WriteString(doc.Content)
	}
	return b.String()
}
