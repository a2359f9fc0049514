package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"llm_proxy/internal/models"
	"llm_proxy/internal/storage"
	"llm_proxy/internal/utils"
)

// ToolRegistry manages tool definitions. Builtins are seeded at startup and
// keep their name, source and existence immutable; custom tools carry Lua
// source screened before every persist.
type ToolRegistry struct {
	mu     sync.Mutex
	store  ToolStore
	logger *utils.Logger
}

// NewToolRegistry creates a tool registry over the given store.
func NewToolRegistry(store ToolStore, logger *utils.Logger) *ToolRegistry {
	if logger == nil {
		logger = utils.NewLogger("tool-registry")
	}
	return &ToolRegistry{
		store:  store,
		logger: logger,
	}
}

// CreateToolInput carries the fields for a new custom tool.
type CreateToolInput struct {
	Name        string
	Description string
	Category    string
	Enabled     *bool
	Source      string
	Parameters  []models.ToolParameter
}

// UpdateToolInput carries a partial update; nil fields are left unchanged.
type UpdateToolInput struct {
	Name        *string
	Description *string
	Category    *string
	Enabled     *bool
	Source      *string
	Parameters  []models.ToolParameter
}

// CreateTool validates and persists a new custom tool.
func (r *ToolRegistry) CreateTool(ctx context.Context, input CreateToolInput) (*models.ToolDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, err := models.ValidateName(input.Name)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if err := r.checkNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	if input.Source != "" {
		if err := ScreenToolSource(name, input.Source); err != nil {
			return nil, err
		}
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	now := time.Now().UTC()
	tool := &models.ToolDefinition{
		ID:          newEntityID(),
		Name:        name,
		Description: input.Description,
		Category:    input.Category,
		Enabled:     enabled,
		IsBuiltin:   false,
		Source:      input.Source,
		Parameters:  input.Parameters,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.Create(ctx, tool); err != nil {
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	r.logger.Info("created tool", "id", tool.ID, "name", tool.Name)

	return tool, nil
}

// GetTool retrieves a tool by ID.
func (r *ToolRegistry) GetTool(ctx context.Context, id string) (*models.ToolDefinition, error) {
	tool, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrToolNotFound) {
			return nil, &NotFoundError{Kind: "tool", Ref: id}
		}
		return nil, err
	}
	return tool, nil
}

// GetToolByName retrieves a tool by name, case-insensitively.
func (r *ToolRegistry) GetToolByName(ctx context.Context, name string) (*models.ToolDefinition, error) {
	tool, err := r.store.GetByName(ctx, models.NormalizeName(name))
	if err != nil {
		if errors.Is(err, storage.ErrToolNotFound) {
			return nil, &NotFoundError{Kind: "tool", Ref: name}
		}
		return nil, err
	}
	return tool, nil
}

// ListTools returns tools matching the filters.
func (r *ToolRegistry) ListTools(ctx context.Context, filters storage.ToolListFilters) ([]*models.ToolDefinition, error) {
	return r.store.List(ctx, filters)
}

// KnownToolNames returns the names of all registered tools.
func (r *ToolRegistry) KnownToolNames(ctx context.Context) ([]string, error) {
	return r.store.Names(ctx)
}

// CustomToolsWithSource returns enabled custom tools carrying source text,
// the synthesizer's working set.
func (r *ToolRegistry) CustomToolsWithSource(ctx context.Context) ([]*models.ToolDefinition, error) {
	return r.store.ListCustomWithSource(ctx)
}

// UpdateTool applies a partial update. Builtins accept only description,
// category and enabled changes.
func (r *ToolRegistry) UpdateTool(ctx context.Context, id string, input UpdateToolInput) (*models.ToolDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, err := r.GetTool(ctx, id)
	if err != nil {
		return nil, err
	}

	if tool.IsBuiltin {
		if input.Name != nil && models.NormalizeName(*input.Name) != tool.Name {
			return nil, NewValidationError("builtin tool %q cannot be renamed", tool.Name)
		}
		if input.Source != nil && *input.Source != tool.Source {
			return nil, NewValidationError("builtin tool %q source cannot be changed", tool.Name)
		}
	}

	if input.Source != nil && *input.Source != tool.Source {
		if err := ScreenToolSource(tool.Name, *input.Source); err != nil {
			return nil, err
		}
	}

	if input.Name != nil {
		name, err := models.ValidateName(*input.Name)
		if err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
		if name != tool.Name {
			if err := r.checkNameFree(ctx, name, tool.ID); err != nil {
				return nil, err
			}
			tool.Name = name
		}
	}
	if input.Description != nil {
		tool.Description = *input.Description
	}
	if input.Category != nil {
		tool.Category = *input.Category
	}
	if input.Enabled != nil {
		tool.Enabled = *input.Enabled
	}
	if input.Source != nil {
		tool.Source = *input.Source
	}
	if input.Parameters != nil {
		tool.Parameters = input.Parameters
	}

	if err := r.store.Update(ctx, tool); err != nil {
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}

	r.logger.Info("updated tool", "id", tool.ID, "name", tool.Name)

	return tool, nil
}

// SetToolEnabled toggles a tool's enabled flag. Allowed for builtins.
func (r *ToolRegistry) SetToolEnabled(ctx context.Context, id string, enabled bool) (*models.ToolDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, err := r.GetTool(ctx, id)
	if err != nil {
		return nil, err
	}

	tool.Enabled = enabled
	if err := r.store.Update(ctx, tool); err != nil {
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}

	return tool, nil
}

// DeleteTool removes a custom tool. Builtins refuse.
func (r *ToolRegistry) DeleteTool(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, err := r.GetTool(ctx, id)
	if err != nil {
		return err
	}

	if tool.IsBuiltin {
		return NewValidationError("builtin tool %q cannot be deleted", tool.Name)
	}

	if err := r.store.Delete(ctx, tool.ID); err != nil {
		return fmt.Errorf("failed to delete tool: %w", err)
	}

	r.logger.Info("deleted tool", "id", tool.ID, "name", tool.Name)

	return nil
}

// EnsureBuiltinTools seeds the builtin tool definitions missing from the
// store. Existing rows keep their enabled flag and description.
func (r *ToolRegistry) EnsureBuiltinTools(ctx context.Context, builtins []*models.ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, builtin := range builtins {
		_, err := r.store.GetByID(ctx, builtin.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrToolNotFound) {
			return err
		}

		if err := r.store.Create(ctx, builtin); err != nil {
			return fmt.Errorf("failed to seed builtin tool %q: %w", builtin.Name, err)
		}
		r.logger.Info("seeded builtin tool", "id", builtin.ID, "name", builtin.Name)
	}

	return nil
}

func (r *ToolRegistry) checkNameFree(ctx context.Context, name, excludeID string) error {
	existing, err := r.store.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrToolNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == excludeID {
		return nil
	}
	return NewConflictError("tool name %q is already in use", name)
}
