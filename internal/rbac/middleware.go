// Package rbac provides the authorization gate: request middleware deciding
// whether the resolved principal holds a required role or permission.
package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. Both
// predicates expect the authenticator to have run first; a missing principal
// is answered with 401 rather than 403.
type Middleware struct {
	Logger *slog.Logger
}

// RequireRole admits the request iff the principal holds the named role.
func (m Middleware) RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Error(w, shared.ErrUnauthenticated)
				return
			}
			if !principal.HasRole(roleName) {
				httpx.Error(w, fmt.Errorf("%w: role required", shared.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits the request iff the principal's flattened
// permission set contains the named permission.
func (m Middleware) RequirePermission(permissionName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Error(w, shared.ErrUnauthenticated)
				return
			}
			if !principal.HasPermission(permissionName) {
				httpx.Error(w, fmt.Errorf("%w: permission denied", shared.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
