package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Handler wires HTTP endpoints for login, logout and the current principal.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	validator  *validator.Validate
	production bool
}

// NewHandler constructs a Handler. Production mode hardens the session
// cookie (Secure flag, strict same-site).
func NewHandler(logger *slog.Logger, service *Service, production bool) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		validator:  validator.New(),
		production: production,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginUser struct {
	*Principal
	Permissions []string `json:"permissions"`
}

type loginResponse struct {
	User  loginUser `json:"user"`
	Token string    `json:"token"`
}

// Login authenticates credentials, issues a session token and sets it as an
// HTTP-only cookie. The token is echoed in the body for non-cookie clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, fmt.Errorf("%w: email and password are required", shared.ErrInvalidInput))
		return
	}

	account, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.service.AuditLogin(r.Context(), account.ID, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("record login", slog.Any("error", err))
	}

	h.setTokenCookie(w, token, int(h.service.Tokens().TTL().Seconds()))
	principal := account.Principal
	httpx.JSON(w, http.StatusOK, loginResponse{
		User:  loginUser{Principal: &principal, Permissions: principal.PermissionNames()},
		Token: token,
	})
}

// Logout bumps the principal's token version and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Error(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Logout(r.Context(), principal.ID); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	h.setTokenCookie(w, "", -1)
	httpx.Msg(w, http.StatusOK, "logged out successfully")
}

type meRole struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type meUser struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Roles       []meRole  `json:"roles"`
	Permissions []string  `json:"permissions"`
}

type meResponse struct {
	User meUser `json:"user"`
}

// Me returns the resolved principal: populated roles plus the flattened
// permission set.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Error(w, shared.ErrUnauthenticated)
		return
	}
	roles := make([]meRole, 0, len(principal.Roles))
	for _, role := range principal.Roles {
		roles = append(roles, meRole{Name: role.Name, Permissions: role.Permissions})
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: meUser{
		ID:          principal.ID,
		Name:        principal.Name,
		Email:       principal.Email,
		Roles:       roles,
		Permissions: principal.PermissionNames(),
	}})
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
	})
}
