package posts

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

// Handler manages post endpoints. Reads are public; writes run behind the
// authenticator and post.* permission gates.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authmw  auth.Middleware
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authmw auth.Middleware, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authmw: authmw, rbac: rbacmw}
}

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(h.authmw.Authenticate)
		r.With(h.rbac.RequirePermission("post.create")).Post("/", h.create)
		r.With(h.rbac.RequirePermission("post.edit")).Put("/{id}", h.update)
		r.With(h.rbac.RequirePermission("post.delete")).Delete("/{id}", h.delete)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Error(w, shared.ErrUnauthenticated)
		return
	}
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	post, err := h.service.Create(r.Context(), principal.ID, input)
	if err != nil {
		h.respondError(w, "create post", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
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
	post, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete post", err)
		return
	}
	httpx.Msg(w, http.StatusOK, "post deleted")
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, fmt.Errorf("%w: post not found", shared.ErrNotFound))
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
