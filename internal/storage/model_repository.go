package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"llm_proxy/internal/models"
)

const modelColumns = `
	id, name, version, enabled, base_model, params, rag_policy,
	tool_names, active_versions, created_at, updated_at
`

const versionColumns = `
	model_id, version, enabled, base_model, params, rag_policy,
	tool_names, description, created_at
`

// ModelRepository handles custom model database operations with caching
type ModelRepository struct {
	db    *DB
	cache *LRUCache[*models.Model]
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{
		db:    db,
		cache: db.GetModelCache(),
	}
}

// GetByID retrieves a model and its version history by ID
func (r *ModelRepository) GetByID(ctx context.Context, id string) (*models.Model, error) {
	var model models.Model
	query := fmt.Sprintf("SELECT %s FROM custom_models WHERE id = $1", modelColumns)

	err := r.db.conn.GetContext(ctx, &model, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	if err := r.loadVersions(ctx, &model); err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}

	return &model, nil
}

// GetByName retrieves a model by canonical name, case-insensitively
// (with caching)
func (r *ModelRepository) GetByName(ctx context.Context, name string) (*models.Model, error) {
	if cached, found := r.cache.Get(name); found {
		return cached, nil
	}

	var model models.Model
	query := fmt.Sprintf("SELECT %s FROM custom_models WHERE lower(name) = lower($1)", modelColumns)

	err := r.db.conn.GetContext(ctx, &model, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model by name: %w", err)
	}

	if err := r.loadVersions(ctx, &model); err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}

	r.cache.Set(name, &model)

	return &model, nil
}

// List returns all models ordered by name
func (r *ModelRepository) List(ctx context.Context) ([]*models.Model, error) {
	query := fmt.Sprintf("SELECT %s FROM custom_models ORDER BY name", modelColumns)

	var modelsList []*models.Model
	err := r.db.conn.SelectContext(ctx, &modelsList, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	for _, model := range modelsList {
		if err := r.loadVersions(ctx, model); err != nil {
			return nil, fmt.Errorf("failed to load versions: %w", err)
		}
	}

	return modelsList, nil
}

// Count returns the total number of models
func (r *ModelRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM custom_models")
	if err != nil {
		return 0, fmt.Errorf("failed to count models: %w", err)
	}
	return count, nil
}

// Create inserts a model together with its initial version snapshot
func (r *ModelRepository) Create(ctx context.Context, model *models.Model, version *models.ModelVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertModel := `
		INSERT INTO custom_models (id, name, version, enabled, base_model, params,
			rag_policy, tool_names, active_versions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insertModel,
		model.ID, model.Name, model.Version, model.Enabled, model.BaseModel,
		model.Params, model.Rag, model.ToolNames, model.ActiveVersions,
		model.CreatedAt, model.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	if err := insertVersionTx(ctx, tx, version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update rewrites the model's denormalized current fields
func (r *ModelRepository) Update(ctx context.Context, model *models.Model) error {
	query := `
		UPDATE custom_models
		SET name = $2, version = $3, enabled = $4, base_model = $5, params = $6,
			rag_policy = $7, tool_names = $8, active_versions = $9, updated_at = $10
		WHERE id = $1
	`
	model.UpdatedAt = time.Now().UTC()

	result, err := r.db.conn.ExecContext(ctx, query,
		model.ID, model.Name, model.Version, model.Enabled, model.BaseModel,
		model.Params, model.Rag, model.ToolNames, model.ActiveVersions,
		model.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrModelNotFound
	}

	r.InvalidateCache(model.Name)

	return nil
}

// InsertVersion adds a version snapshot and updates the model's denormalized
// fields in the same transaction
func (r *ModelRepository) InsertVersion(ctx context.Context, model *models.Model, version *models.ModelVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersionTx(ctx, tx, version); err != nil {
		return err
	}

	updateModel := `
		UPDATE custom_models
		SET version = $2, base_model = $3, params = $4, rag_policy = $5,
			tool_names = $6, active_versions = $7, updated_at = $8
		WHERE id = $1
	`
	model.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, updateModel,
		model.ID, model.Version, model.BaseModel, model.Params, model.Rag,
		model.ToolNames, model.ActiveVersions, model.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.InvalidateCache(model.Name)

	return nil
}

// SetVersionEnabled toggles a version snapshot's enabled flag
func (r *ModelRepository) SetVersionEnabled(ctx context.Context, modelID, version string, enabled bool) error {
	query := "UPDATE model_versions SET enabled = $3 WHERE model_id = $1 AND version = $2"

	result, err := r.db.conn.ExecContext(ctx, query, modelID, version, enabled)
	if err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionNotFound
	}

	return nil
}

// Delete removes a model; version snapshots and active-set membership
// cascade away with it
func (r *ModelRepository) Delete(ctx context.Context, id string) error {
	// Get model name before deletion to invalidate cache
	var modelName string
	err := r.db.conn.GetContext(ctx, &modelName, "SELECT name FROM custom_models WHERE id = $1", id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get model name: %w", err)
	}

	result, err := r.db.conn.ExecContext(ctx, "DELETE FROM custom_models WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrModelNotFound
	}

	if modelName != "" {
		r.cache.Delete(modelName)
	}

	return nil
}

// ListActive returns the active-model set in priority order
func (r *ModelRepository) ListActive(ctx context.Context) ([]models.ActiveModelEntry, error) {
	query := "SELECT model_id, priority, created_at FROM active_models ORDER BY priority"

	var entries []models.ActiveModelEntry
	err := r.db.conn.SelectContext(ctx, &entries, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active models: %w", err)
	}

	return entries, nil
}

// CountActive returns the size of the active-model set
func (r *ModelRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM active_models")
	if err != nil {
		return 0, fmt.Errorf("failed to count active models: %w", err)
	}
	return count, nil
}

// IsActive reports whether the model is in the active set
func (r *ModelRepository) IsActive(ctx context.Context, modelID string) (bool, error) {
	var count int
	err := r.db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM active_models WHERE model_id = $1", modelID)
	if err != nil {
		return false, fmt.Errorf("failed to check active set: %w", err)
	}
	return count > 0, nil
}

// Activate inserts the model at the front of the active set. An existing
// entry is moved rather than duplicated.
func (r *ModelRepository) Activate(ctx context.Context, modelID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM active_models WHERE model_id = $1", modelID); err != nil {
		return fmt.Errorf("failed to clear active entry: %w", err)
	}

	// Lower priority sorts first, so the new front slots in below the minimum.
	var minPriority sql.NullInt64
	if err := tx.GetContext(ctx, &minPriority, "SELECT MIN(priority) FROM active_models"); err != nil {
		return fmt.Errorf("failed to get minimum priority: %w", err)
	}

	priority := 0
	if minPriority.Valid {
		priority = int(minPriority.Int64) - 1
	}

	insert := "INSERT INTO active_models (model_id, priority, created_at) VALUES ($1, $2, $3)"
	if _, err := tx.ExecContext(ctx, insert, modelID, priority, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert active entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Deactivate removes the model from the active set
func (r *ModelRepository) Deactivate(ctx context.Context, modelID string) error {
	result, err := r.db.conn.ExecContext(ctx, "DELETE FROM active_models WHERE model_id = $1", modelID)
	if err != nil {
		return fmt.Errorf("failed to remove active entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotActive
	}

	return nil
}

// InvalidateCache removes a model from the cache
func (r *ModelRepository) InvalidateCache(modelName string) {
	r.cache.Delete(modelName)
}

// loadVersions loads the full version history into the model
func (r *ModelRepository) loadVersions(ctx context.Context, model *models.Model) error {
	query := fmt.Sprintf("SELECT %s FROM model_versions WHERE model_id = $1", versionColumns)

	var versions []*models.ModelVersion
	if err := r.db.conn.SelectContext(ctx, &versions, query, model.ID); err != nil {
		return err
	}

	model.Versions = make(map[string]*models.ModelVersion, len(versions))
	for _, v := range versions {
		model.Versions[v.Version] = v
	}

	return nil
}

func insertVersionTx(ctx context.Context, tx *sqlx.Tx, version *models.ModelVersion) error {
	insert := `
		INSERT INTO model_versions (model_id, version, enabled, base_model, params,
			rag_policy, tool_names, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, insert,
		version.ModelID, version.Version, version.Enabled, version.BaseModel,
		version.Params, version.Rag, version.ToolNames, version.Description,
		version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}
