package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchardhq/orchard/internal/core"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("instance abc: %w", core.ErrNotFound), http.StatusNotFound},
		{"quota exceeded", fmt.Errorf("tenant at limit: %w", core.ErrQuotaExceeded), http.StatusForbidden},
		{"name conflict", fmt.Errorf("name taken: %w", core.ErrNameConflict), http.StatusConflict},
		{"port conflict", fmt.Errorf("port races: %w", core.ErrPortConflict), http.StatusConflict},
		{"invalid state", fmt.Errorf("cannot start: %w", core.ErrInvalidState), http.StatusConflict},
		{"runtime unavailable", fmt.Errorf("engine down: %w", core.ErrRuntimeUnavailable), http.StatusServiceUnavailable},
		{"operation failed", fmt.Errorf("inspect: %w", core.ErrOperationFailed), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			body := decodeErrorResponse(rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}
