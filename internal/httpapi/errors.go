package httpapi

import (
	"errors"
	"net/http"

	"llm_proxy/internal/registry"
	"llm_proxy/internal/utils"
)

// respondWithRegistryError maps registry error types onto HTTP statuses.
func respondWithRegistryError(w http.ResponseWriter, err error) {
	var (
		validation *registry.ValidationError
		security   *registry.SecurityError
		notFound   *registry.NotFoundError
		conflict   *registry.ConflictError
		disabled   *registry.DisabledError
		inactive   *registry.InactiveVersionError
	)

	// Conflicts also match ValidationError, so they are checked first to
	// keep their 409.
	switch {
	case errors.As(err, &conflict):
		utils.RespondWithError(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &validation):
		utils.RespondWithError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &security):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, security.Error())
	case errors.As(err, &notFound):
		utils.RespondWithError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &disabled):
		utils.RespondWithError(w, http.StatusConflict, disabled.Error())
	case errors.As(err, &inactive):
		utils.RespondWithError(w, http.StatusConflict, inactive.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
