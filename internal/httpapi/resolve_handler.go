package httpapi

import (
	"encoding/json"
	"net/http"

	"llm_proxy/internal/models"
	"llm_proxy/internal/resolver"
	"llm_proxy/internal/utils"
)

// ResolveHandler exposes the request resolver for inspection.
type ResolveHandler struct {
	resolver *resolver.Resolver
}

// NewResolveHandler creates a resolve handler
func NewResolveHandler(res *resolver.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: res}
}

// ResolveRequest names the model identifier to resolve.
type ResolveRequest struct {
	Model string `json:"model"`
}

// ResolveResponse summarizes the effective configuration for an identifier.
type ResolveResponse struct {
	ModelID   string           `json:"model_id,omitempty"`
	ModelName string           `json:"model_name,omitempty"`
	Version   string           `json:"version,omitempty"`
	Default   bool             `json:"default"`
	BaseModel string           `json:"base_model"`
	Params    models.JSONB     `json:"params,omitempty"`
	Rag       models.RagPolicy `json:"rag_policy"`
	Tools     []string         `json:"tools"`
}

// Resolve handles POST /v1/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.resolver.Resolve(r.Context(), req.Model)
	if err != nil {
		respondWithRegistryError(w, err)
		return
	}

	resp := ResolveResponse{
		Default:   cfg.Model == nil,
		BaseModel: cfg.BaseModel,
		Params:    cfg.Params,
		Rag:       cfg.Rag,
		Tools:     make([]string, 0, len(cfg.Tools)),
	}
	if cfg.Model != nil {
		resp.ModelID = cfg.Model.ID
		resp.ModelName = cfg.Model.Name
		resp.Version = cfg.Version.Version
	}
	for _, tool := range cfg.Tools {
		resp.Tools = append(resp.Tools, tool.Name())
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}
