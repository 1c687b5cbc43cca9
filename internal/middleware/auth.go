package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bazaar-kiosk/api/internal/auth"
	"github.com/bazaar-kiosk/api/internal/enum"
)

type contextKey string

const claimsKey contextKey = "claims"

var (
	errMissingToken = errors.New("missing authorization header")
	errBadScheme    = errors.New("invalid authorization format")
)

// Token extracts the bearer token from the Authorization header.
func Token(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errBadScheme
	}
	return strings.TrimSpace(token), nil
}

// Verify validates a session token and checks that it names a kiosk role.
func Verify(jwtSecret, token string) (*auth.Claims, error) {
	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil {
		return nil, errors.New("invalid token")
	}
	if !enum.IsRole(claims.Role) {
		return nil, errors.New("unknown role")
	}
	return claims, nil
}

// Authenticate requires a valid role session on every request.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := Token(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				return
			}

			claims, err := Verify(jwtSecret, token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole lets only the given roles through. Must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			if !allowed[claims.Role] {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "role " + claims.Role + " cannot do this"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims stores claims in ctx the way Authenticate does.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
