package httpx

import (
	"errors"
	"net/http"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Error maps a domain error onto the HTTP error taxonomy. Specific messages
// are surfaced for validation and conflict failures; anything unrecognized is
// treated as an internal error and answered with a generic message so that
// persistence details never leak to the caller.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Msg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		Msg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrUnauthenticated):
		Msg(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Msg(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Msg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Msg(w, http.StatusConflict, err.Error())
	default:
		Msg(w, http.StatusInternalServerError, "server error")
	}
}
