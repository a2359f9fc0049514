package tools

import (
	"context"
	"sync"

	"llm_proxy/internal/models"
	"llm_proxy/internal/utils"
)

// CustomToolSource supplies the custom tool definitions eligible for
// synthesis: enabled, non-builtin, carrying source text.
type CustomToolSource interface {
	CustomToolsWithSource(ctx context.Context) ([]*models.ToolDefinition, error)
}

// Synthesizer keeps a per-process cache of synthesized Lua tools, reconciled
// against the tool registry on each resolution cycle. Lookups are safe under
// concurrent readers.
type Synthesizer struct {
	mu     sync.RWMutex
	cache  map[string]*LuaTool
	source CustomToolSource
	logger *utils.Logger
}

// NewSynthesizer creates a synthesizer over the given tool source.
func NewSynthesizer(source CustomToolSource, logger *utils.Logger) *Synthesizer {
	if logger == nil {
		logger = utils.NewLogger("tool-synthesizer")
	}
	return &Synthesizer{
		cache:  make(map[string]*LuaTool),
		source: source,
		logger: logger,
	}
}

// Reconcile rebuilds the cache from the registry's current custom tools:
// new tools are synthesized, tools whose source changed are refreshed,
// tools no longer present are evicted.
func (s *Synthesizer) Reconcile(ctx context.Context) error {
	defs, err := s.source.CustomToolsWithSource(ctx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	previous := s.cache
	s.mu.RUnlock()

	next := make(map[string]*LuaTool, len(defs))
	for _, def := range defs {
		if cached, ok := previous[def.Name]; ok && cached.Source() == def.Source {
			next[def.Name] = cached
			continue
		}
		next[def.Name] = NewLuaTool(def)
		s.logger.Debug("synthesized tool", "name", def.Name)
	}

	for name := range previous {
		if _, ok := next[name]; !ok {
			s.logger.Debug("evicted tool", "name", name)
		}
	}

	s.mu.Lock()
	s.cache = next
	s.mu.Unlock()

	return nil
}

// Lookup returns the cached tool by name, if present.
func (s *Synthesizer) Lookup(name string) (CallableTool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tool, ok := s.cache[name]
	if !ok {
		return nil, false
	}
	return tool, true
}

// Len returns the number of cached tools.
func (s *Synthesizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
