package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatetimeTool(t *testing.T) {
	tool := NewDatetimeTool()
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	tool.now = func() time.Time { return fixed }

	assert.Equal(t, "2025-03-14T09:26:53Z", tool.Invoke(nil))
	assert.Equal(t, "2025-03-14", tool.Invoke(map[string]any{"format": "2006-01-02"}))
}

// stubRetriever returns canned documents.
type stubRetriever struct {
	docs []Document
	err  error

	gotQuery string
	gotTopK  int
}

func (s *stubRetriever) Search(_ context.Context, query string, topK int) ([]Document, error) {
	s.gotQuery = query
	s.gotTopK = topK
	return s.docs, s.err
}

func TestKnowledgeSearchTool(t *testing.T) {
	retriever := &stubRetriever{docs: []Document{
		{Source: "handbook.md", Content: "first passage"},
		{Content: "second passage"},
	}}
	tool := NewKnowledgeSearchTool(retriever)

	result := tool.Invoke(map[string]any{"query": "vacation policy", "top_k": float64(2)})

	assert.Equal(t, "vacation policy", retriever.gotQuery)
	assert.Equal(t, 2, retriever.gotTopK)
	assert.Contains(t, result, "[handbook.md] first passage")
	assert.Contains(t, result, "second passage")
}

func TestKnowledgeSearchToolErrors(t *testing.T) {
	tool := NewKnowledgeSearchTool(&stubRetriever{err: errors.New("backend down")})

	result := tool.Invoke(map[string]any{"query": "anything"})
	assert.Contains(t, result, "Error executing tool")
	assert.Contains(t, result, "backend down")

	result = tool.Invoke(map[string]any{"query": "   "})
	assert.Contains(t, result, "query must not be empty")

	result = NewKnowledgeSearchTool(nil).Invoke(map[string]any{"query": "x"})
	assert.Contains(t, result, "no knowledge base is configured")
}

func TestKnowledgeSearchToolNoResults(t *testing.T) {
	tool := NewKnowledgeSearchTool(&stubRetriever{})
	assert.Equal(t, "No relevant passages found.", tool.Invoke(map[string]any{"query": "x"}))
}

func TestBuiltinDefinitionsStableIDs(t *testing.T) {
	defs := BuiltinDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "c9d0e1f2", defs[0].ID)
	assert.Equal(t, "f3a4b5c6", defs[1].ID)
	for _, def := range defs {
		assert.True(t, def.IsBuiltin)
		assert.Empty(t, def.Source)
	}
}
