package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"llm_proxy/internal/models"
	"llm_proxy/internal/registry"
	"llm_proxy/internal/utils"
)

// AdminModelsHandler handles model management endpoints
type AdminModelsHandler struct {
	registry *registry.ConfigRegistry
}

// NewAdminModelsHandler creates a new admin models handler
func NewAdminModelsHandler(reg *registry.ConfigRegistry) *AdminModelsHandler {
	return &AdminModelsHandler{registry: reg}
}

// CreateModelRequest represents the request to create a new model
type CreateModelRequest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	BaseModel   string            `json:"base_model,omitempty"`
	Params      models.JSONB      `json:"params,omitempty"`
	RagPolicy   *models.RagPolicy `json:"rag_policy,omitempty"`
	ToolNames   []string          `json:"tool_names,omitempty"`
	Description string            `json:"description,omitempty"`
}

// UpdateModelRequest represents a partial model update
type UpdateModelRequest struct {
	Name      *string           `json:"name,omitempty"`
	Enabled   *bool             `json:"enabled,omitempty"`
	BaseModel *string           `json:"base_model,omitempty"`
	Params    models.JSONB      `json:"params,omitempty"`
	RagPolicy *models.RagPolicy `json:"rag_policy,omitempty"`
	ToolNames []string          `json:"tool_names,omitempty"`
}

// CreateVersionRequest represents the request to add a model version
type CreateVersionRequest struct {
	Version     string            `json:"version"`
	BaseModel   *string           `json:"base_model,omitempty"`
	Params      models.JSONB      `json:"params,omitempty"`
	RagPolicy   *models.RagPolicy `json:"rag_policy,omitempty"`
	ToolNames   []string          `json:"tool_names,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Collection handles /admin/models
func (h *AdminModelsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Item handles /admin/models/{id} and its sub-resources
func (h *AdminModelsHandler) Item(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/models"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	if parts[0] == "active" {
		h.listActive(w, r)
		return
	}

	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 2 && parts[1] == "versions":
		switch r.Method {
		case http.MethodGet:
			h.versionHistory(w, r, id)
		case http.MethodPost:
			h.createVersion(w, r, id)
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 4 && parts[1] == "versions":
		if r.Method != http.MethodPost {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.toggleVersion(w, r, id, parts[2], parts[3])
	case len(parts) == 2 && (parts[1] == "activate" || parts[1] == "deactivate"):
		if r.Method != http.MethodPost {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.toggleActive(w, r, id, parts[1])
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	}
}

func (h *AdminModelsHandler) list(w http.ResponseWriter, r *http.Request) {
	modelsList, err := h.registry.ListModels(r.Context())
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"models": modelsList})
}

func (h *AdminModelsHandler) listActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	active, err := h.registry.ListActiveModels(r.Context())
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"models": active})
}

func (h *AdminModelsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, err := h.registry.CreateModel(r.Context(), registry.CreateModelInput{
		Name:        req.Name,
		Version:     req.Version,
		Enabled:     req.Enabled,
		BaseModel:   req.BaseModel,
		Params:      req.Params,
		Rag:         req.RagPolicy,
		ToolNames:   req.ToolNames,
		Description: req.Description,
	})
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, model)
}

func (h *AdminModelsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	model, err := h.registry.GetModel(r.Context(), id)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, model)
}

func (h *AdminModelsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, err := h.registry.UpdateModel(r.Context(), id, registry.UpdateModelInput{
		Name:      req.Name,
		Enabled:   req.Enabled,
		BaseModel: req.BaseModel,
		Params:    req.Params,
		Rag:       req.RagPolicy,
		ToolNames: req.ToolNames,
	})
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, model)
}

func (h *AdminModelsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.registry.DeleteModel(r.Context(), id); err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminModelsHandler) versionHistory(w http.ResponseWriter, r *http.Request, id string) {
	history, err := h.registry.GetVersionHistory(r.Context(), id)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"versions": history})
}

func (h *AdminModelsHandler) createVersion(w http.ResponseWriter, r *http.Request, id string) {
	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	version, err := h.registry.CreateModelVersion(r.Context(), id, registry.CreateVersionInput{
		Version:     req.Version,
		BaseModel:   req.BaseModel,
		Params:      req.Params,
		Rag:         req.RagPolicy,
		ToolNames:   req.ToolNames,
		Description: req.Description,
	})
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, version)
}

func (h *AdminModelsHandler) toggleVersion(w http.ResponseWriter, r *http.Request, id, version, action string) {
	var err error
	switch action {
	case "activate":
		err = h.registry.ActivateModelVersion(r.Context(), id, version)
	case "deactivate":
		err = h.registry.DeactivateModelVersion(r.Context(), id, version)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminModelsHandler) toggleActive(w http.ResponseWriter, r *http.Request, id, action string) {
	var err error
	if action == "activate" {
		err = h.registry.ActivateModel(r.Context(), id)
	} else {
		err = h.registry.DeactivateModel(r.Context(), id)
	}
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
