package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// TokenCookie is the session cookie name.
const TokenCookie = "token"

// Middleware resolves the session token into a principal for downstream
// handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate extracts the session token (cookie first, then bearer
// header), verifies it, loads the principal with its permission closure and
// attaches it to the request context. Requests without a valid token are
// rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			httpx.Error(w, fmt.Errorf("%w: no token provided", shared.ErrUnauthenticated))
			return
		}
		principal, err := m.Service.Resolve(r.Context(), raw)
		if err != nil {
			if !errors.Is(err, shared.ErrUnauthenticated) {
				if m.Logger != nil {
					m.Logger.Error("resolve principal", slog.Any("error", err))
				}
				httpx.Error(w, err)
				return
			}
			httpx.Error(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// extractToken returns the cookie value when present, else the bearer value
// from the Authorization header. The cookie wins when both are set.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
