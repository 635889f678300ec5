package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/rbac"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Handler manages user account endpoints, including the auth flows that live
// under the same route prefix.
type Handler struct {
	logger  *slog.Logger
	service *Service
	auth    *auth.Handler
	authmw  auth.Middleware
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authHandler *auth.Handler, authmw auth.Middleware, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, auth: authHandler, authmw: authmw, rbac: rbacmw}
}

// MountRoutes registers user routes. Register and login are public; every
// other route runs behind the authenticator, with CRUD additionally gated by
// user.* permissions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.authmw.Authenticate)
		r.Get("/me", h.auth.Me)
		r.Post("/logout", h.auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission("user.view"))
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission("user.edit"))
			r.Put("/{id}", h.update)
			r.Put("/{id}/roles", h.assignRoles)
		})
		r.With(h.rbac.RequirePermission("user.delete")).Delete("/{id}", h.delete)
	})
}

type userEnvelope struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.respondError(w, "register user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, userEnvelope{Message: "user created successfully", User: user})
}

// listItem is the list projection: role names plus the flattened permission
// closure, without nested role objects.
type listItem struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	items := make([]listItem, 0, len(result))
	for i := range result {
		user := &result[i]
		items = append(items, listItem{
			ID:          user.ID,
			Name:        user.Name,
			Email:       user.Email,
			Roles:       user.RoleNames(),
			Permissions: user.PermissionNames(),
		})
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	user, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, userEnvelope{Message: "user updated successfully", User: user})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete user", err)
		return
	}
	httpx.Msg(w, http.StatusOK, "user deleted")
}

type assignRolesRequest struct {
	Roles []string `json:"roles"`
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req assignRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	user, err := h.service.AssignRoles(r.Context(), id, req.Roles)
	if err != nil {
		h.respondError(w, "assign roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, userEnvelope{Message: "roles assigned", User: user})
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, fmt.Errorf("%w: user not found", shared.ErrNotFound))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.Error(w, err)
}
