package permissions

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/platform/httpx"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Handler manages permission administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers permission routes. Callers are expected to mount the
// group behind the authenticator and an admin gate.
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
	perm, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	result, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	perm, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
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
	perm, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete permission", err)
		return
	}
	httpx.Msg(w, http.StatusOK, "permission deleted")
}

// paramID parses the {id} route parameter. A malformed id cannot resolve to
// any permission, so it is reported as not found.
func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, fmt.Errorf("%w: permission not found", shared.ErrNotFound))
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
