package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"llm_proxy/internal/models"
)

const toolColumns = `
	id, name, description, category, enabled, is_builtin, source,
	parameters, created_at, updated_at
`

// ToolRepository handles tool database operations
type ToolRepository struct {
	db *DB
}

// NewToolRepository creates a new tool repository
func NewToolRepository(db *DB) *ToolRepository {
	return &ToolRepository{db: db}
}

// GetByID retrieves a tool by ID
func (r *ToolRepository) GetByID(ctx context.Context, id string) (*models.ToolDefinition, error) {
	var tool models.ToolDefinition
	query := fmt.Sprintf("SELECT %s FROM tools WHERE id = $1", toolColumns)

	err := r.db.conn.GetContext(ctx, &tool, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrToolNotFound
		}
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}

	return &tool, nil
}

// GetByName retrieves a tool by canonical name, case-insensitively
func (r *ToolRepository) GetByName(ctx context.Context, name string) (*models.ToolDefinition, error) {
	var tool models.ToolDefinition
	query := fmt.Sprintf("SELECT %s FROM tools WHERE lower(name) = lower($1)", toolColumns)

	err := r.db.conn.GetContext(ctx, &tool, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrToolNotFound
		}
		return nil, fmt.Errorf("failed to get tool by name: %w", err)
	}

	return &tool, nil
}

// ToolListFilters contains filter parameters for listing tools
type ToolListFilters struct {
	Category string
	Enabled  *bool
}

// List returns tools matching the filters, ordered by name
func (r *ToolRepository) List(ctx context.Context, filters ToolListFilters) ([]*models.ToolDefinition, error) {
	var whereClauses []string
	var args []interface{}
	argCount := 1

	if filters.Category != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("category = $%d", argCount))
		args = append(args, filters.Category)
		argCount++
	}

	if filters.Enabled != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("enabled = $%d", argCount))
		args = append(args, *filters.Enabled)
		argCount++
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + whereClauses[0]
		for i := 1; i < len(whereClauses); i++ {
			whereClause += " AND " + whereClauses[i]
		}
	}

	query := fmt.Sprintf("SELECT %s FROM tools %s ORDER BY name", toolColumns, whereClause)

	var tools []*models.ToolDefinition
	err := r.db.conn.SelectContext(ctx, &tools, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	return tools, nil
}

// Names returns all registered tool names
func (r *ToolRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.conn.SelectContext(ctx, &names, "SELECT name FROM tools ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tool names: %w", err)
	}
	return names, nil
}

// ListCustomWithSource returns enabled non-builtin tools that carry source text
func (r *ToolRepository) ListCustomWithSource(ctx context.Context) ([]*models.ToolDefinition, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM tools WHERE enabled = true AND is_builtin = false AND source <> '' ORDER BY name",
		toolColumns)

	var tools []*models.ToolDefinition
	err := r.db.conn.SelectContext(ctx, &tools, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom tools: %w", err)
	}

	return tools, nil
}

// Create inserts a tool
func (r *ToolRepository) Create(ctx context.Context, tool *models.ToolDefinition) error {
	query := `
		INSERT INTO tools (id, name, description, category, enabled, is_builtin,
			source, parameters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.conn.ExecContext(ctx, query,
		tool.ID, tool.Name, tool.Description, tool.Category, tool.Enabled,
		tool.IsBuiltin, tool.Source, tool.Parameters, tool.CreatedAt, tool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tool: %w", err)
	}

	return nil
}

// Update rewrites a tool's mutable fields
func (r *ToolRepository) Update(ctx context.Context, tool *models.ToolDefinition) error {
	query := `
		UPDATE tools
		SET name = $2, description = $3, category = $4, enabled = $5,
			source = $6, parameters = $7, updated_at = $8
		WHERE id = $1
	`
	tool.UpdatedAt = time.Now().UTC()

	result, err := r.db.conn.ExecContext(ctx, query,
		tool.ID, tool.Name, tool.Description, tool.Category, tool.Enabled,
		tool.Source, tool.Parameters, tool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrToolNotFound
	}

	return nil
}

// Delete removes a tool
func (r *ToolRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn.ExecContext(ctx, "DELETE FROM tools WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete tool: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrToolNotFound
	}

	return nil
}
