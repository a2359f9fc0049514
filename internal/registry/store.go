package registry

import (
	"context"

	"llm_proxy/internal/models"
	"llm_proxy/internal/storage"
)

// ModelStore is the storage surface the config registry needs. Implemented
// by storage.ModelRepository; tests use an in-memory fake.
type ModelStore interface {
	GetByID(ctx context.Context, id string) (*models.Model, error)
	GetByName(ctx context.Context, name string) (*models.Model, error)
	List(ctx context.Context) ([]*models.Model, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, model *models.Model, version *models.ModelVersion) error
	Update(ctx context.Context, model *models.Model) error
	InsertVersion(ctx context.Context, model *models.Model, version *models.ModelVersion) error
	SetVersionEnabled(ctx context.Context, modelID, version string, enabled bool) error
	Delete(ctx context.Context, id string) error

	ListActive(ctx context.Context) ([]models.ActiveModelEntry, error)
	CountActive(ctx context.Context) (int, error)
	IsActive(ctx context.Context, modelID string) (bool, error)
	Activate(ctx context.Context, modelID string) error
	Deactivate(ctx context.Context, modelID string) error
}

// ToolStore is the storage surface the tool registry needs. Implemented by
// storage.ToolRepository; tests use an in-memory fake.
type ToolStore interface {
	GetByID(ctx context.Context, id string) (*models.ToolDefinition, error)
	GetByName(ctx context.Context, name string) (*models.ToolDefinition, error)
	List(ctx context.Context, filters storage.ToolListFilters) ([]*models.ToolDefinition, error)
	Names(ctx context.Context) ([]string, error)
	ListCustomWithSource(ctx context.Context) ([]*models.ToolDefinition, error)
	Create(ctx context.Context, tool *models.ToolDefinition) error
	Update(ctx context.Context, tool *models.ToolDefinition) error
	Delete(ctx context.Context, id string) error
}
