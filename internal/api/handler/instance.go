package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orchardhq/orchard/internal/api/request"
	"github.com/orchardhq/orchard/internal/api/response"
	"github.com/orchardhq/orchard/internal/core"
	"github.com/orchardhq/orchard/internal/model"
)

type Instance struct {
	svc *core.InstanceService
}

func NewInstance(svc *core.InstanceService) *Instance {
	return &Instance{svc: svc}
}

func (h *Instance) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := request.ParseListParams(r, "created_at")

	instances, hasMore, err := h.svc.ListByTenant(r.Context(), tenantID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(instances) > 0 {
		nextCursor = instances[len(instances)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, instances, nextCursor, hasMore)
}

// createInstanceResponse carries the one-time plaintext admin credential
// alongside the created record. It is never retrievable again.
type createInstanceResponse struct {
	*model.Instance
	AdminPassword string `json:"admin_password"`
}

// Create reserves the instance record and returns 202; provisioning
// continues in the lifecycle workflow.
func (h *Instance) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := request.RequireID(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateInstance
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Create(r.Context(), core.CreateInstanceParams{
		TenantID:       tenantID,
		Name:           req.Name,
		Version:        req.Version,
		AdminPassword:  req.AdminPassword,
		DatabaseName:   req.DatabaseName,
		CPULimit:       req.CPULimit,
		MemoryLimitMB:  req.MemoryLimitMB,
		BackupSchedule: req.BackupSchedule,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, createInstanceResponse{
		Instance:      result.Instance,
		AdminPassword: result.AdminPassword,
	})
}

func (h *Instance) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	instance, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, instance)
}

func (h *Instance) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, h.svc.Start)
}

func (h *Instance) Stop(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, h.svc.Stop)
}

func (h *Instance) Restart(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, h.svc.Restart)
}

func (h *Instance) Delete(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, h.svc.Delete)
}

// lifecycleOp validates the ID, hands the operation to the service and
// answers 202; the workflow performs the actual transition.
func (h *Instance) lifecycleOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := op(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "accepted"})
}

// Stats returns a live resource usage snapshot straight from the
// container runtime.
func (h *Instance) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, stats)
}

// Reconcile synchronously converges the record status onto the runtime's
// view of the container and returns the refreshed record.
func (h *Instance) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	instance, err := h.svc.Reconcile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, instance)
}
