package middleware

import (
	"net/http"

	"bazaar/internal/domain"

	"go.uber.org/zap"
)

// RequireSeller ensures the authenticated user holds the seller capability.
// The role tag comes from the JWT claims, not from a database lookup.
func RequireSeller(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleSeller}, logger)
}

// RequireRole ensures the user has one of the allowed roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				logger.Warn("User role not authorized",
					zap.String("role", role),
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
