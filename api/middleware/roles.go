package middleware

import (
	"net/http"

	"github.com/angelmondragon/shopfront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
)

// RequireRole admits only principals holding role. An empty role admits every
// authenticated principal, so it must sit behind Auth.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if role != "" && RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").WithDetails(map[string]any{"role": role}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
