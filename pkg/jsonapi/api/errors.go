package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error, principal jsonapi.Principal) int {
	switch {
	case errors.Is(err, jsonapi.ErrUnauthorized):
		if principal.IsAnonymous() {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.Is(err, jsonapi.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, jsonapi.ErrInvalidValue),
		errors.Is(err, jsonapi.ErrFieldRequired),
		errors.Is(err, jsonapi.ErrReadOnly):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	principal := PrincipalFromContext(r.Context())
	status := statusFor(err, principal)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.Info("Request rejected", "path", r.URL.Path, "status", status, "principal", principal.ID, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}
