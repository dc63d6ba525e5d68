package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/auth"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/logger"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// AccessVerifier validates access tokens. *service.AuthService satisfies it.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*auth.Claims, error)
}

// ClaimsFromContext returns the verified claims stored by AuthGuard.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

// AuthGuard rejects requests without a valid bearer access token and stores
// the verified claims in the request context.
func AuthGuard(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, r, apperrors.Unauthorized("missing or malformed authorization header"))
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMinRole rejects authenticated requests whose role sits below the
// minimum. Must be mounted after AuthGuard.
func RequireMinRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, r, apperrors.Unauthorized("authentication required"))
				return
			}

			role, err := domain.ParseRole(claims.Role)
			if err != nil || !role.AtLeast(min) {
				writeError(w, r, apperrors.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON rejects write requests whose body is not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				writeError(w, r, &apperrors.AppError{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
					Status:  http.StatusUnsupportedMediaType,
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORSConfig holds the allowed cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// CORS sets Cross-Origin Resource Sharing headers. Development mode (or a
// "*" entry) allows any origin; otherwise the request origin is validated
// against the configured list.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowWildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the originating client address, preferring the first
// X-Forwarded-For hop set by the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
