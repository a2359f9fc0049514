package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
	}{
		{
			name:    "validation failure",
			code:    http.StatusBadRequest,
			message: "at least one valid tool name is required",
		},
		{
			name:    "missing model",
			code:    http.StatusNotFound,
			message: "Model not found: assistant",
		},
		{
			name:    "inactive version",
			code:    http.StatusConflict,
			message: "Version 1.0.0 of model 'assistant' is not active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithError(w, tt.code, tt.message)

			if w.Code != tt.code {
				t.Errorf("RespondWithError() status = %d, want %d", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("RespondWithError() Content-Type = %s, want application/json", ct)
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Error != tt.message {
				t.Errorf("RespondWithError() message = %s, want %s", response.Error, tt.message)
			}
		})
	}
}

func TestRespondWithJSON(t *testing.T) {
	t.Run("struct payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		payload := struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Version string `json:"version"`
		}{
			ID:      "a1b2c3d4",
			Name:    "default-model",
			Version: "1.0.0",
		}

		if err := RespondWithJSON(w, http.StatusCreated, payload); err != nil {
			t.Errorf("RespondWithJSON() error = %v, want nil", err)
		}
		if w.Code != http.StatusCreated {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusCreated)
		}

		var response map[string]string
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response["name"] != "default-model" {
			t.Errorf("RespondWithJSON() name = %s, want default-model", response["name"])
		}
		if response["version"] != "1.0.0" {
			t.Errorf("RespondWithJSON() version = %s, want 1.0.0", response["version"])
		}
	})

	t.Run("unmarshalable payload keeps a 500 status", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := RespondWithJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})
		if err == nil {
			t.Fatal("RespondWithJSON() error = nil, want marshal failure")
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if !strings.Contains(w.Body.String(), "Failed to encode response") {
			t.Errorf("RespondWithJSON() body = %q, want encode failure message", w.Body.String())
		}
	})

	t.Run("nil payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		if err := RespondWithJSON(w, http.StatusOK, nil); err != nil {
			t.Errorf("RespondWithJSON() error = %v, want nil", err)
		}
		if body := w.Body.String(); body != "null" {
			t.Errorf("RespondWithJSON() body = %q, want null", body)
		}
	})
}
