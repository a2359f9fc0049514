package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"llm_proxy/internal/models"
	"llm_proxy/internal/registry"
	"llm_proxy/internal/storage"
	"llm_proxy/internal/utils"
)

// AdminToolsHandler handles tool management endpoints
type AdminToolsHandler struct {
	registry *registry.ToolRegistry
}

// NewAdminToolsHandler creates a new admin tools handler
func NewAdminToolsHandler(reg *registry.ToolRegistry) *AdminToolsHandler {
	return &AdminToolsHandler{registry: reg}
}

// CreateToolRequest represents the request to create a custom tool
type CreateToolRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Parameters  []models.ToolParameter `json:"parameters,omitempty"`
}

// UpdateToolRequest represents a partial tool update
type UpdateToolRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Category    *string                `json:"category,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Source      *string                `json:"source,omitempty"`
	Parameters  []models.ToolParameter `json:"parameters,omitempty"`
}

// Collection handles /admin/tools
func (h *AdminToolsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Item handles /admin/tools/{id} and its sub-resources
func (h *AdminToolsHandler) Item(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/tools"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
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
	case len(parts) == 2 && (parts[1] == "enable" || parts[1] == "disable"):
		if r.Method != http.MethodPost {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.setEnabled(w, r, id, parts[1] == "enable")
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	}
}

func (h *AdminToolsHandler) list(w http.ResponseWriter, r *http.Request) {
	filters := storage.ToolListFilters{
		Category: r.URL.Query().Get("category"),
	}
	if enabled := r.URL.Query().Get("enabled"); enabled != "" {
		value := enabled == "true"
		filters.Enabled = &value
	}

	toolsList, err := h.registry.ListTools(r.Context(), filters)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"tools": toolsList})
}

func (h *AdminToolsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tool, err := h.registry.CreateTool(r.Context(), registry.CreateToolInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Enabled:     req.Enabled,
		Source:      req.Source,
		Parameters:  req.Parameters,
	})
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, tool)
}

func (h *AdminToolsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	tool, err := h.registry.GetTool(r.Context(), id)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tool)
}

func (h *AdminToolsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tool, err := h.registry.UpdateTool(r.Context(), id, registry.UpdateToolInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Enabled:     req.Enabled,
		Source:      req.Source,
		Parameters:  req.Parameters,
	})
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, tool)
}

func (h *AdminToolsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.registry.DeleteTool(r.Context(), id); err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminToolsHandler) setEnabled(w http.ResponseWriter, r *http.Request, id string, enabled bool) {
	tool, err := h.registry.SetToolEnabled(r.Context(), id, enabled)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tool)
}
