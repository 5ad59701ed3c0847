package middleware

import (
	"net/http"
	"slices"
	"strings"

	"eato/internal/auth"
	"eato/internal/model"

	"github.com/rs/zerolog"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (model.Identity, error)
}

// Authenticate requires a valid bearer token and stores the caller's
// identity on the request context.
func Authenticate(tokens TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !found || raw == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Authentication token is required")
				return
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose role is not listed. It must run after
// Authenticate.
func RequireRole(logger zerolog.Logger, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Authentication token is required")
				return
			}
			if !slices.Contains(roles, id.Role) {
				logger.Warn().
					Int64("user_id", id.UserID).
					Str("role", string(id.Role)).
					Str("path", r.URL.Path).
					Msg("role not permitted")
				writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "Access denied. Insufficient permissions.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
