package handler

import (
	"errors"
	"net/http"

	"github.com/orchardhq/orchard/internal/api/response"
	"github.com/orchardhq/orchard/internal/core"
)

// writeServiceError maps the core error taxonomy onto HTTP status codes
// and writes the error response.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrQuotaExceeded):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNameConflict),
		errors.Is(err, core.ErrPortConflict),
		errors.Is(err, core.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, core.ErrRuntimeUnavailable):
		status = http.StatusServiceUnavailable
	}
	response.WriteError(w, status, err.Error())
}
