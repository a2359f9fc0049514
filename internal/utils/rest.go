package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithError sends message as a JSON error body with the given status.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithJSON writes payload as JSON. The payload is marshaled before the
// status line goes out, so a marshal failure still yields a 500 instead of a
// success status with a broken body.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
	return nil
}
