package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"llm_proxy/internal/config"
	"llm_proxy/internal/utils"
)

// ContextKey is the type for authentication values stored in the request
// context.
type ContextKey string

// Context keys for storing authentication data
const (
	AdminClaimsKey ContextKey = "adminClaims"
	AdminIDKey     ContextKey = "adminID"
	AdminRolesKey  ContextKey = "adminRoles"
)

// AdminClaims are the JWT claims carried by admin tokens.
type AdminClaims struct {
	AdminID string   `json:"admin_id"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// ValidateAdminJWT parses and validates an admin token signed with the
// configured HS256 secret.
func ValidateAdminJWT(tokenString string, cfg *config.Config) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AdminJWTMiddleware validates admin JWT tokens and enforces role-based access
func AdminJWTMiddleware(cfg *config.Config, requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header or X-API-Key header
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				tokenString = r.Header.Get("X-API-Key")
			}
			if tokenString == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}

			tokenString = strings.TrimPrefix(tokenString, "Bearer ")

			claims, err := ValidateAdminJWT(tokenString, cfg)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if len(requiredRoles) > 0 {
				hasPermission := false
				for _, required := range requiredRoles {
					for _, role := range claims.Roles {
						// An admin role satisfies every requirement.
						if role == required || role == "admin" {
							hasPermission = true
							break
						}
					}
					if hasPermission {
						break
					}
				}
				if !hasPermission {
					utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
					return
				}
			}

			// Embed claims into request context
			ctx := context.WithValue(r.Context(), AdminClaimsKey, claims)
			ctx = context.WithValue(ctx, AdminIDKey, claims.AdminID)
			ctx = context.WithValue(ctx, AdminRolesKey, claims.Roles)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminClaims retrieves the admin claims from the request context
func GetAdminClaims(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(AdminClaimsKey).(*AdminClaims)
	return claims, ok
}

// GetAdminID retrieves the admin ID from the request context
func GetAdminID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AdminIDKey).(string)
	return id, ok
}

// HasRole checks if the admin has a specific role
func HasRole(ctx context.Context, role string) bool {
	roles, ok := ctx.Value(AdminRolesKey).([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
