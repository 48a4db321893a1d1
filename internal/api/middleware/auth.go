package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/devroom-hq/devroom/internal/store"
	"github.com/devroom-hq/devroom/internal/token"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware verifies bearer tokens on authenticated endpoints.
type AuthMiddleware struct {
	tokens *token.Manager
	redis  *store.RedisStore // nil disables the revocation check
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *token.Manager, redis *store.RedisStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, redis: redis}
}

// BearerToken extracts the credential from the Authorization header, the
// token cookie, or the token query parameter, in that order.
func BearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// RequireAuth verifies the request's bearer token and rejects revoked
// tokens.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := BearerToken(r)
		if tok == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if m.redis != nil && m.redis.IsTokenBlacklisted(r.Context(), tok) {
			jsonError(w, http.StatusUnauthorized, "token revoked")
			return
		}

		claims, err := m.tokens.Verify(tok)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the verified claims from the request
// context.
func GetUserFromContext(ctx context.Context) *token.Claims {
	claims, ok := ctx.Value(UserContextKey).(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}
