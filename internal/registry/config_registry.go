package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"llm_proxy/internal/models"
	"llm_proxy/internal/storage"
	"llm_proxy/internal/utils"
)

// ToolNameSource supplies the set of registered tool names. Tool grants on a
// model are filtered against it.
type ToolNameSource interface {
	KnownToolNames(ctx context.Context) ([]string, error)
}

// ConfigRegistry manages custom models, their version histories and the
// active-model set. Mutations are serialized by a single mutex; reads go
// straight to the store.
type ConfigRegistry struct {
	mu     sync.Mutex
	store  ModelStore
	tools  ToolNameSource
	logger *utils.Logger
}

// NewConfigRegistry creates a config registry over the given store.
func NewConfigRegistry(store ModelStore, tools ToolNameSource, logger *utils.Logger) *ConfigRegistry {
	if logger == nil {
		logger = utils.NewLogger("config-registry")
	}
	return &ConfigRegistry{
		store:  store,
		tools:  tools,
		logger: logger,
	}
}

// newEntityID returns a short random ID: the first 8 hex chars of a uuid4.
func newEntityID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:8]
}

// CreateModelInput carries the fields for a new model.
type CreateModelInput struct {
	Name        string
	Version     string
	Enabled     *bool
	BaseModel   string
	Params      models.JSONB
	Rag         *models.RagPolicy
	ToolNames   []string
	Description string
}

// UpdateModelInput carries a partial update; nil fields are left unchanged.
type UpdateModelInput struct {
	Name      *string
	Enabled   *bool
	BaseModel *string
	Params    models.JSONB
	Rag       *models.RagPolicy
	ToolNames []string
}

// CreateVersionInput carries the fields for a new model version. Unset
// fields inherit from the current version.
type CreateVersionInput struct {
	Version     string
	BaseModel   *string
	Params      models.JSONB
	Rag         *models.RagPolicy
	ToolNames   []string
	Description string
}

// CreateModel validates and persists a new model with its initial version.
func (r *ConfigRegistry) CreateModel(ctx context.Context, input CreateModelInput) (*models.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, err := models.ValidateName(input.Name)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	version := input.Version
	if version == "" {
		version = models.InitialVersion
	}
	if err := models.ValidateVersion(version); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if err := r.checkNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	toolNames, err := r.resolveToolGrants(ctx, input.ToolNames)
	if err != nil {
		return nil, err
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	var rag models.RagJSONB
	if input.Rag != nil {
		rag = models.RagJSONB(*input.Rag)
	}

	now := time.Now().UTC()
	model := &models.Model{
		ID:             newEntityID(),
		Name:           name,
		Version:        version,
		Enabled:        enabled,
		BaseModel:      input.BaseModel,
		Params:         models.FilterParams(input.Params),
		Rag:            rag,
		ToolNames:      toolNames,
		ActiveVersions: models.StringList{version},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	snapshot := model.CurrentVersionView()
	snapshot.Description = input.Description
	snapshot.CreatedAt = now

	if err := r.store.Create(ctx, model, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	model.Versions = map[string]*models.ModelVersion{version: snapshot}

	r.logger.Info("created model", "id", model.ID, "name", model.Name, "version", version)

	return model, nil
}

// GetModel retrieves a model by ID.
func (r *ConfigRegistry) GetModel(ctx context.Context, id string) (*models.Model, error) {
	model, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			return nil, &NotFoundError{Kind: "model", Ref: id}
		}
		return nil, err
	}
	return model, nil
}

// GetModelByName retrieves a model by name, case-insensitively.
func (r *ConfigRegistry) GetModelByName(ctx context.Context, name string) (*models.Model, error) {
	canonical := models.NormalizeName(name)
	model, err := r.store.GetByName(ctx, canonical)
	if err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			return nil, &NotFoundError{Kind: "model", Ref: name}
		}
		return nil, err
	}
	return model, nil
}

// ListModels returns all models.
func (r *ConfigRegistry) ListModels(ctx context.Context) ([]*models.Model, error) {
	return r.store.List(ctx)
}

// UpdateModel applies a partial update to a model's current fields.
func (r *ConfigRegistry) UpdateModel(ctx context.Context, id string, input UpdateModelInput) (*models.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := models.ValidateName(*input.Name)
		if err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
		if name != model.Name {
			if err := r.checkNameFree(ctx, name, model.ID); err != nil {
				return nil, err
			}
			// Drop the stale cache entry before the name changes under it.
			r.invalidateName(model.Name)
			model.Name = name
		}
	}
	if input.Enabled != nil {
		model.Enabled = *input.Enabled
	}
	if input.BaseModel != nil {
		model.BaseModel = *input.BaseModel
	}
	if input.Params != nil {
		model.Params = models.FilterParams(input.Params)
	}
	if input.Rag != nil {
		model.Rag = models.RagJSONB(*input.Rag)
	}
	if input.ToolNames != nil {
		toolNames, err := r.resolveToolGrants(ctx, input.ToolNames)
		if err != nil {
			return nil, err
		}
		model.ToolNames = toolNames
	}

	if err := r.store.Update(ctx, model); err != nil {
		return nil, fmt.Errorf("failed to update model: %w", err)
	}

	r.logger.Info("updated model", "id", model.ID, "name", model.Name)

	return model, nil
}

// DeleteModel removes a model. Refused while the model is the sole member of
// the active set.
func (r *ConfigRegistry) DeleteModel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return err
	}

	active, err := r.store.IsActive(ctx, model.ID)
	if err != nil {
		return err
	}
	if active {
		count, err := r.store.CountActive(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return NewConflictError("cannot delete model %q: it is the only active model", model.Name)
		}
	}

	if err := r.store.Delete(ctx, model.ID); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	r.logger.Info("deleted model", "id", model.ID, "name", model.Name)

	return nil
}

// CreateModelVersion adds a new version to a model. The new version must be
// strictly greater than the current one; unspecified fields inherit from the
// current version. It becomes the current version and joins the active set.
func (r *ConfigRegistry) CreateModelVersion(ctx context.Context, id string, input CreateVersionInput) (*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateVersion(input.Version); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if _, exists := model.Versions[input.Version]; exists || input.Version == model.Version {
		return nil, NewValidationError("version %q already exists for model %q", input.Version, model.Name)
	}
	if models.CompareVersions(input.Version, model.Version) <= 0 {
		return nil, NewValidationError("version %q must be greater than current version %q", input.Version, model.Version)
	}

	current := r.versionView(model, model.Version)

	// Inherited grants are revalidated: tools deleted since the current
	// version was written drop out here.
	grants := []string(current.ToolNames)
	if input.ToolNames != nil {
		grants = input.ToolNames
	}
	toolNames, err := r.resolveToolGrants(ctx, grants)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ModelVersion{
		ModelID:     model.ID,
		Version:     input.Version,
		Enabled:     true,
		BaseModel:   current.BaseModel,
		Params:      current.Params,
		Rag:         current.Rag,
		ToolNames:   toolNames,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if input.BaseModel != nil {
		snapshot.BaseModel = *input.BaseModel
	}
	if input.Params != nil {
		snapshot.Params = models.FilterParams(input.Params)
	}
	if input.Rag != nil {
		snapshot.Rag = models.RagJSONB(*input.Rag)
	}

	// The new version becomes current: denormalized fields follow it.
	model.Version = snapshot.Version
	model.BaseModel = snapshot.BaseModel
	model.Params = snapshot.Params
	model.Rag = snapshot.Rag
	model.ToolNames = snapshot.ToolNames
	model.ActiveVersions = append(model.ActiveVersions, snapshot.Version)

	if err := r.store.InsertVersion(ctx, model, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	r.logger.Info("created model version", "id", model.ID, "name", model.Name, "version", snapshot.Version)

	return snapshot, nil
}

// GetVersionHistory returns the model's versions, newest first.
func (r *ConfigRegistry) GetVersionHistory(ctx context.Context, id string) ([]*models.ModelVersion, error) {
	model, err := r.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(model.Versions))
	for v := range model.Versions {
		versions = append(versions, v)
	}
	if _, ok := model.Versions[model.Version]; !ok {
		versions = append(versions, model.Version)
	}
	models.SortVersionsDesc(versions)

	history := make([]*models.ModelVersion, 0, len(versions))
	for _, v := range versions {
		history = append(history, r.versionView(model, v))
	}

	return history, nil
}

// ActivateModelVersion marks a version usable for resolution.
func (r *ConfigRegistry) ActivateModelVersion(ctx context.Context, id, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return err
	}

	_, known := model.Versions[version]
	if !known && version != model.Version {
		return &NotFoundError{Kind: "model version", Ref: version}
	}

	if known {
		if err := r.store.SetVersionEnabled(ctx, model.ID, version, true); err != nil {
			return err
		}
		// A cached model would keep serving the stale snapshot flag.
		r.invalidateName(model.Name)
	}

	if !model.VersionActive(version) {
		model.ActiveVersions = append(model.ActiveVersions, version)
		if err := r.store.Update(ctx, model); err != nil {
			return fmt.Errorf("failed to update active versions: %w", err)
		}
	}

	return nil
}

// DeactivateModelVersion removes a version from resolution. The sole active
// version cannot be deactivated.
func (r *ConfigRegistry) DeactivateModelVersion(ctx context.Context, id, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return err
	}

	_, known := model.Versions[version]
	if !known && version != model.Version {
		return &NotFoundError{Kind: "model version", Ref: version}
	}
	if !model.VersionActive(version) {
		return NewValidationError("version %q of model %q is not active", version, model.Name)
	}
	if len(model.ActiveVersions) <= 1 {
		return NewConflictError("cannot deactivate version %q: it is the only active version of model %q", version, model.Name)
	}

	if known {
		if err := r.store.SetVersionEnabled(ctx, model.ID, version, false); err != nil {
			return err
		}
		r.invalidateName(model.Name)
	}

	remaining := make(models.StringList, 0, len(model.ActiveVersions)-1)
	for _, v := range model.ActiveVersions {
		if v != version {
			remaining = append(remaining, v)
		}
	}
	model.ActiveVersions = remaining

	if err := r.store.Update(ctx, model); err != nil {
		return fmt.Errorf("failed to update active versions: %w", err)
	}

	return nil
}

// ActivateModel inserts the model at the front of the active-model set.
func (r *ConfigRegistry) ActivateModel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.Activate(ctx, model.ID); err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}

	r.logger.Info("activated model", "id", model.ID, "name", model.Name)

	return nil
}

// DeactivateModel removes the model from the active set. The sole member
// cannot be removed.
func (r *ConfigRegistry) DeactivateModel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	model, err := r.GetModel(ctx, id)
	if err != nil {
		return err
	}

	active, err := r.store.IsActive(ctx, model.ID)
	if err != nil {
		return err
	}
	if !active {
		return &NotFoundError{Kind: "active model", Ref: model.Name}
	}

	count, err := r.store.CountActive(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return NewConflictError("cannot deactivate model %q: it is the only active model", model.Name)
	}

	if err := r.store.Deactivate(ctx, model.ID); err != nil {
		return fmt.Errorf("failed to deactivate model: %w", err)
	}

	r.logger.Info("deactivated model", "id", model.ID, "name", model.Name)

	return nil
}

// ListActiveModels returns the active models in priority order.
func (r *ConfigRegistry) ListActiveModels(ctx context.Context) ([]*models.Model, error) {
	entries, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Model, 0, len(entries))
	for _, entry := range entries {
		model, err := r.store.GetByID(ctx, entry.ModelID)
		if err != nil {
			if errors.Is(err, storage.ErrModelNotFound) {
				r.logger.Warn("active set references missing model", "model_id", entry.ModelID)
				continue
			}
			return nil, err
		}
		active = append(active, model)
	}

	return active, nil
}

// ResolveIdentifier resolves "name" or "name@version" to a model and a
// version view. An unknown identifier resolves to (nil, nil, nil); gate
// failures surface as DisabledError or InactiveVersionError.
func (r *ConfigRegistry) ResolveIdentifier(ctx context.Context, identifier string) (*models.Model, *models.ModelVersion, error) {
	name, version := models.ParseIdentifier(identifier)
	if name == "" {
		return nil, nil, nil
	}

	model, err := r.store.GetByName(ctx, name)
	if errors.Is(err, storage.ErrModelNotFound) {
		// Fall back to treating the name part as an ID.
		model, err = r.store.GetByID(ctx, name)
		if errors.Is(err, storage.ErrModelNotFound) {
			return nil, nil, nil
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if !model.Enabled {
		return nil, nil, &DisabledError{Name: model.Name}
	}

	if version == "" {
		return model, r.versionView(model, model.Version), nil
	}

	if !model.VersionActive(version) {
		return nil, nil, &InactiveVersionError{
			Name:           model.Name,
			Version:        version,
			ActiveVersions: append([]string(nil), model.ActiveVersions...),
		}
	}

	if _, ok := model.Versions[version]; !ok && version != model.Version {
		return nil, nil, &NotFoundError{Kind: "model version", Ref: version}
	}

	return model, r.versionView(model, version), nil
}

// EnsureDefaultModel seeds and activates the bootstrap model when the store
// is empty.
func (r *ConfigRegistry) EnsureDefaultModel(ctx context.Context, baseModel string) error {
	r.mu.Lock()

	count, err := r.store.Count(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if count > 0 {
		r.mu.Unlock()
		return nil
	}

	// The bootstrap model is granted every tool registered at seed time.
	known, err := r.knownToolNames(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	now := time.Now().UTC()
	model := &models.Model{
		ID:             models.DefaultModelID,
		Name:           models.DefaultModelName,
		Version:        models.InitialVersion,
		Enabled:        true,
		BaseModel:      baseModel,
		ToolNames:      models.StringList(known),
		ActiveVersions: models.StringList{models.InitialVersion},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	snapshot := model.CurrentVersionView()
	snapshot.Description = "bootstrap default model"

	if err := r.store.Create(ctx, model, snapshot); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to seed default model: %w", err)
	}
	r.mu.Unlock()

	if err := r.ActivateModel(ctx, model.ID); err != nil {
		return err
	}

	r.logger.Info("seeded default model", "id", model.ID, "name", model.Name)

	return nil
}

// versionView returns the stored snapshot for a version, or a view
// synthesized from the current fields when the snapshot predates the
// version table.
func (r *ConfigRegistry) versionView(model *models.Model, version string) *models.ModelVersion {
	if snapshot, ok := model.Versions[version]; ok {
		return snapshot
	}
	return model.CurrentVersionView()
}

// invalidateName drops the store's name-keyed cache entry, if it keeps one.
func (r *ConfigRegistry) invalidateName(name string) {
	if inv, ok := r.store.(interface{ InvalidateCache(string) }); ok {
		inv.InvalidateCache(name)
	}
}

// checkNameFree enforces case-insensitive name uniqueness. excludeID skips
// the model being renamed.
func (r *ConfigRegistry) checkNameFree(ctx context.Context, name, excludeID string) error {
	existing, err := r.store.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == excludeID {
		return nil
	}
	return NewConflictError("model name %q is already in use", name)
}

// knownToolNames returns the registered tool names in canonical form.
func (r *ConfigRegistry) knownToolNames(ctx context.Context) ([]string, error) {
	if r.tools == nil {
		return nil, nil
	}

	names, err := r.tools.KnownToolNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool names: %w", err)
	}

	canonical := make([]string, 0, len(names))
	for _, n := range names {
		canonical = append(canonical, models.NormalizeName(n))
	}
	return canonical, nil
}

// resolveToolGrants validates tool grants against the registered tool set.
// Omitted grants default to every known tool; unknown names are dropped with
// a warning. A set that filters down to nothing is rejected: every model
// version carries at least one tool.
func (r *ConfigRegistry) resolveToolGrants(ctx context.Context, names []string) (models.StringList, error) {
	known, err := r.knownToolNames(ctx)
	if err != nil {
		return nil, err
	}

	var filtered models.StringList
	if names == nil {
		filtered = append(filtered, known...)
	} else {
		knownSet := make(map[string]struct{}, len(known))
		for _, n := range known {
			knownSet[n] = struct{}{}
		}
		for _, n := range names {
			canonical := models.NormalizeName(n)
			if _, ok := knownSet[canonical]; ok {
				filtered = append(filtered, canonical)
			} else {
				r.logger.Warn("dropping unknown tool grant", "tool", n)
			}
		}
	}

	if len(filtered) == 0 {
		return nil, NewValidationError("at least one valid tool name is required")
	}

	return filtered, nil
}
