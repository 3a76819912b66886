package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"mesa/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// PrincipalContextKey is the context key for the authenticated principal
const PrincipalContextKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the principal stored by the middleware, or nil.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(PrincipalContextKey).(*domain.Principal)
	return p
}

// Middleware resolves session tokens into principals.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(jwt *JWTManager) *Middleware {
	return &Middleware{jwt: jwt}
}

// Authenticate returns the principal of r, or nil for anonymous callers.
func (m *Middleware) Authenticate(r *http.Request) *domain.Principal {
	token, err := TokenFromRequest(r)
	if err != nil {
		return nil
	}

	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
		return nil
	}
	return claims.Principal()
}

// OptionalAuth adds the principal to the context when the request carries a
// valid session, and continues regardless.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := m.Authenticate(r); p != nil {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous callers with 401 and callers holding none of
// roles with 403.
func (m *Middleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.Authenticate(r)
			if p == nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !p.HasRole(roles...) {
				log.Warn().
					Str("username", p.Username).
					Str("role", string(p.Role)).
					Str("path", r.URL.Path).
					Msg("Insufficient role")
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
