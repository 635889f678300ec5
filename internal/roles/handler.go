package roles

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Handler manages role administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers role routes. Callers mount the group behind the
// authenticator and an admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, fmt.Errorf("%w: malformed request body", shared.ErrInvalidInput))
		return
	}
	role, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
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
	role, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	httpx.Msg(w, http.StatusOK, "role deleted")
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, fmt.Errorf("%w: role not found", shared.ErrNotFound))
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
