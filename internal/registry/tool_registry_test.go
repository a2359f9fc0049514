package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm_proxy/internal/models"
	"llm_proxy/internal/storage"
)

const weatherSource = `
function weather(city)
    return "weather in " .. city .. ": sunny"
end
`

func TestCreateTool(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()

	tool, err := reg.CreateTool(ctx, CreateToolInput{
		Name:        "Weather",
		Description: "weather lookup",
		Category:    "utility",
		Source:      weatherSource,
	})
	require.NoError(t, err)

	assert.Equal(t, "weather", tool.Name)
	assert.True(t, tool.Enabled)
	assert.False(t, tool.IsBuiltin)
	assert.Len(t, tool.ID, 8)
}

func TestCreateToolRejectsBadSource(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()

	_, err := reg.CreateTool(ctx, CreateToolInput{
		Name:   "broken",
		Source: "function broken( return",
	})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = reg.CreateTool(ctx, CreateToolInput{
		Name:   "sneaky",
		Source: `function sneaky() return os.execute("rm -rf /") end`,
	})
	var security *SecurityError
	require.ErrorAs(t, err, &security)
}

func TestCreateToolRejectsDuplicateName(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()

	_, err := reg.CreateTool(ctx, CreateToolInput{Name: "weather"})
	require.NoError(t, err)

	_, err = reg.CreateTool(ctx, CreateToolInput{Name: "WEATHER"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func seedBuiltin(t *testing.T, reg *ToolRegistry) *models.ToolDefinition {
	t.Helper()
	now := time.Now().UTC()
	builtin := &models.ToolDefinition{
		ID:          models.BuiltinDatetimeToolID,
		Name:        models.BuiltinDatetimeToolName,
		Description: "current date and time",
		Category:    "builtin",
		Enabled:     true,
		IsBuiltin:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, reg.EnsureBuiltinTools(context.Background(), []*models.ToolDefinition{builtin}))
	return builtin
}

func TestBuiltinToolProtections(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()
	builtin := seedBuiltin(t, reg)

	var validation *ValidationError

	rename := "other_name"
	_, err := reg.UpdateTool(ctx, builtin.ID, UpdateToolInput{Name: &rename})
	require.ErrorAs(t, err, &validation, "builtin rename")

	source := "function f() return 1 end"
	_, err = reg.UpdateTool(ctx, builtin.ID, UpdateToolInput{Source: &source})
	require.ErrorAs(t, err, &validation, "builtin source edit")

	err = reg.DeleteTool(ctx, builtin.ID)
	require.ErrorAs(t, err, &validation, "builtin delete")

	// Disabling a builtin is allowed.
	updated, err := reg.SetToolEnabled(ctx, builtin.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	// Description updates are allowed too.
	desc := "tweaked"
	updated, err = reg.UpdateTool(ctx, builtin.ID, UpdateToolInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "tweaked", updated.Description)
}

func TestEnsureBuiltinToolsIdempotent(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()
	builtin := seedBuiltin(t, reg)

	// Admin disables it; a reboot must not flip it back.
	_, err := reg.SetToolEnabled(ctx, builtin.ID, false)
	require.NoError(t, err)

	require.NoError(t, reg.EnsureBuiltinTools(ctx, []*models.ToolDefinition{{
		ID:        builtin.ID,
		Name:      builtin.Name,
		Enabled:   true,
		IsBuiltin: true,
	}}))

	stored, err := reg.GetTool(ctx, builtin.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
}

func TestCustomToolsWithSource(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()
	seedBuiltin(t, reg)

	withSource, err := reg.CreateTool(ctx, CreateToolInput{Name: "weather", Source: weatherSource})
	require.NoError(t, err)
	_, err = reg.CreateTool(ctx, CreateToolInput{Name: "sourceless"})
	require.NoError(t, err)
	disabled := false
	_, err = reg.CreateTool(ctx, CreateToolInput{Name: "dormant", Source: weatherSource, Enabled: &disabled})
	require.NoError(t, err)

	custom, err := reg.CustomToolsWithSource(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, withSource.ID, custom[0].ID)
}

func TestUpdateToolRescreensSource(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()

	tool, err := reg.CreateTool(ctx, CreateToolInput{Name: "weather", Source: weatherSource})
	require.NoError(t, err)

	bad := `function weather() return io.read() end`
	_, err = reg.UpdateTool(ctx, tool.ID, UpdateToolInput{Source: &bad})
	var security *SecurityError
	require.ErrorAs(t, err, &security)

	stored, err := reg.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, weatherSource, stored.Source)
}

func TestListToolsFilters(t *testing.T) {
	reg := NewToolRegistry(newMemToolStore(), nil)
	ctx := context.Background()

	_, err := reg.CreateTool(ctx, CreateToolInput{Name: "alpha", Category: "utility"})
	require.NoError(t, err)
	disabled := false
	_, err = reg.CreateTool(ctx, CreateToolInput{Name: "beta", Category: "search", Enabled: &disabled})
	require.NoError(t, err)

	utility, err := reg.ListTools(ctx, storage.ToolListFilters{Category: "utility"})
	require.NoError(t, err)
	require.Len(t, utility, 1)
	assert.Equal(t, "alpha", utility[0].Name)

	enabled := true
	active, err := reg.ListTools(ctx, storage.ToolListFilters{Enabled: &enabled})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alpha", active[0].Name)
}
