package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"llm_proxy/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: []byte("test-secret")}
}

func signToken(t *testing.T, cfg *config.Config, claims *AdminClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.JWTSecret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func adminToken(t *testing.T, cfg *config.Config, roles ...string) string {
	return signToken(t, cfg, &AdminClaims{
		AdminID: "admin-1",
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
}

func TestAdminJWTMiddleware_Success(t *testing.T) {
	cfg := testConfig()
	middleware := AdminJWTMiddleware(cfg, "admin")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetAdminID(r.Context())
		if !ok {
			t.Error("Admin ID not found in context")
		}
		if id != "admin-1" {
			t.Errorf("Unexpected admin ID: %s", id)
		}
		if !HasRole(r.Context(), "admin") {
			t.Error("Expected admin role in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware(nextHandler)
	token := adminToken(t, cfg, "admin")

	t.Run("with Authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("with X-API-Key header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("X-API-Key", token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestAdminJWTMiddleware_MissingToken(t *testing.T) {
	middleware := AdminJWTMiddleware(testConfig(), "admin")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called without a token")
	})

	handler := middleware(nextHandler)

	req := httptest.NewRequest("GET", "/admin/models", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAdminJWTMiddleware_InvalidToken(t *testing.T) {
	middleware := AdminJWTMiddleware(testConfig(), "admin")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called with an invalid token")
	})

	handler := middleware(nextHandler)

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", w.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := &config.Config{JWTSecret: []byte("other-secret")}
		token := adminToken(t, other, "admin")

		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", w.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		cfg := testConfig()
		token := signToken(t, cfg, &AdminClaims{
			AdminID: "admin-1",
			Roles:   []string{"admin"},
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", w.Code)
		}
	})
}

func TestAdminJWTMiddleware_Roles(t *testing.T) {
	cfg := testConfig()
	middleware := AdminJWTMiddleware(cfg, "editor")

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware(nextHandler)

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, "editor"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("admin role satisfies any requirement", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, "admin"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("insufficient role", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin/models", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg, "viewer"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", w.Code)
		}
	})
}
