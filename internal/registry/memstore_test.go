package registry

import (
	"context"
	"sort"
	"strings"
	"time"

	"llm_proxy/internal/models"
	"llm_proxy/internal/storage"
)

// memModelStore is an in-memory ModelStore for registry tests. It records
// cache invalidations so tests can assert on them.
type memModelStore struct {
	models      map[string]*models.Model
	active      map[string]int
	invalidated []string
}

func newMemModelStore() *memModelStore {
	return &memModelStore{
		models: make(map[string]*models.Model),
		active: make(map[string]int),
	}
}

func (s *memModelStore) GetByID(_ context.Context, id string) (*models.Model, error) {
	if m, ok := s.models[id]; ok {
		return m, nil
	}
	return nil, storage.ErrModelNotFound
}

func (s *memModelStore) GetByName(_ context.Context, name string) (*models.Model, error) {
	for _, m := range s.models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return nil, storage.ErrModelNotFound
}

func (s *memModelStore) List(_ context.Context) ([]*models.Model, error) {
	out := make([]*models.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memModelStore) Count(_ context.Context) (int, error) {
	return len(s.models), nil
}

func (s *memModelStore) Create(_ context.Context, model *models.Model, version *models.ModelVersion) error {
	if model.Versions == nil {
		model.Versions = make(map[string]*models.ModelVersion)
	}
	model.Versions[version.Version] = version
	s.models[model.ID] = model
	return nil
}

func (s *memModelStore) Update(_ context.Context, model *models.Model) error {
	if _, ok := s.models[model.ID]; !ok {
		return storage.ErrModelNotFound
	}
	s.models[model.ID] = model
	return nil
}

func (s *memModelStore) InsertVersion(_ context.Context, model *models.Model, version *models.ModelVersion) error {
	stored, ok := s.models[model.ID]
	if !ok {
		return storage.ErrModelNotFound
	}
	if stored.Versions == nil {
		stored.Versions = make(map[string]*models.ModelVersion)
	}
	stored.Versions[version.Version] = version
	s.models[model.ID] = model
	model.Versions = stored.Versions
	return nil
}

func (s *memModelStore) SetVersionEnabled(_ context.Context, modelID, version string, enabled bool) error {
	m, ok := s.models[modelID]
	if !ok {
		return storage.ErrModelNotFound
	}
	v, ok := m.Versions[version]
	if !ok {
		return storage.ErrVersionNotFound
	}
	v.Enabled = enabled
	return nil
}

func (s *memModelStore) Delete(_ context.Context, id string) error {
	if _, ok := s.models[id]; !ok {
		return storage.ErrModelNotFound
	}
	delete(s.models, id)
	delete(s.active, id)
	return nil
}

func (s *memModelStore) ListActive(_ context.Context) ([]models.ActiveModelEntry, error) {
	entries := make([]models.ActiveModelEntry, 0, len(s.active))
	for id, priority := range s.active {
		entries = append(entries, models.ActiveModelEntry{ModelID: id, Priority: priority})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Priority < entries[j].Priority })
	return entries, nil
}

func (s *memModelStore) CountActive(_ context.Context) (int, error) {
	return len(s.active), nil
}

func (s *memModelStore) IsActive(_ context.Context, modelID string) (bool, error) {
	_, ok := s.active[modelID]
	return ok, nil
}

func (s *memModelStore) Activate(_ context.Context, modelID string) error {
	delete(s.active, modelID)
	min := 0
	first := true
	for _, p := range s.active {
		if first || p < min {
			min = p
			first = false
		}
	}
	if first {
		s.active[modelID] = 0
	} else {
		s.active[modelID] = min - 1
	}
	return nil
}

func (s *memModelStore) Deactivate(_ context.Context, modelID string) error {
	if _, ok := s.active[modelID]; !ok {
		return storage.ErrNotActive
	}
	delete(s.active, modelID)
	return nil
}

func (s *memModelStore) InvalidateCache(name string) {
	s.invalidated = append(s.invalidated, name)
}

// memToolStore is an in-memory ToolStore for registry tests.
type memToolStore struct {
	tools map[string]*models.ToolDefinition
}

func newMemToolStore() *memToolStore {
	return &memToolStore{tools: make(map[string]*models.ToolDefinition)}
}

func (s *memToolStore) GetByID(_ context.Context, id string) (*models.ToolDefinition, error) {
	if t, ok := s.tools[id]; ok {
		return t, nil
	}
	return nil, storage.ErrToolNotFound
}

func (s *memToolStore) GetByName(_ context.Context, name string) (*models.ToolDefinition, error) {
	for _, t := range s.tools {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return nil, storage.ErrToolNotFound
}

func (s *memToolStore) List(_ context.Context, filters storage.ToolListFilters) ([]*models.ToolDefinition, error) {
	out := make([]*models.ToolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		if filters.Category != "" && t.Category != filters.Category {
			continue
		}
		if filters.Enabled != nil && t.Enabled != *filters.Enabled {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memToolStore) Names(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memToolStore) ListCustomWithSource(_ context.Context) ([]*models.ToolDefinition, error) {
	out := make([]*models.ToolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		if t.Enabled && !t.IsBuiltin && t.Source != "" {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memToolStore) Create(_ context.Context, tool *models.ToolDefinition) error {
	s.tools[tool.ID] = tool
	return nil
}

func (s *memToolStore) Update(_ context.Context, tool *models.ToolDefinition) error {
	if _, ok := s.tools[tool.ID]; !ok {
		return storage.ErrToolNotFound
	}
	tool.UpdatedAt = time.Now().UTC()
	s.tools[tool.ID] = tool
	return nil
}

func (s *memToolStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tools[id]; !ok {
		return storage.ErrToolNotFound
	}
	delete(s.tools, id)
	return nil
}
