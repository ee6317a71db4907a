package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orchardhq/orchard/internal/api/request"
	"github.com/orchardhq/orchard/internal/api/response"
	"github.com/orchardhq/orchard/internal/core"
)

type Backup struct {
	svc *core.BackupService
}

func NewBackup(svc *core.BackupService) *Backup {
	return &Backup{svc: svc}
}

// List returns backups across all tenants, platform-wide ones included.
func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	backups, hasMore, err := h.svc.List(r.Context(), nil, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(backups) > 0 {
		nextCursor = backups[len(backups)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, backups, nextCursor, hasMore)
}

func (h *Backup) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	backups, hasMore, err := h.svc.List(r.Context(), &tenantID, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(backups) > 0 {
		nextCursor = backups[len(backups)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, backups, nextCursor, hasMore)
}

// Create records a pending backup and returns 202; the backup workflow
// produces the artifact. A body without tenant_id requests a
// platform-wide backup.
func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantID := req.TenantID
	if urlTenant := chi.URLParam(r, "tenantID"); urlTenant != "" {
		tenantID = &urlTenant
	}

	backup, err := h.svc.Create(r.Context(), core.CreateBackupParams{
		TenantID: tenantID,
		Type:     req.Type,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, backup)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, backup)
}

// Restore replays a completed backup; only completed backups qualify.
func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Restore(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "accepted"})
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "accepted"})
}

// Cleanup removes completed backups older than the retention window.
func (h *Backup) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req request.CleanupBackups
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Cleanup(r.Context(), req.RetentionDays); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]any{"retention_days": req.RetentionDays, "status": "accepted"})
}
