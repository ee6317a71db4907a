package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/crypto/bcrypt"

	"github.com/orchardhq/orchard/internal/api/request"
	"github.com/orchardhq/orchard/internal/model"
	"github.com/orchardhq/orchard/internal/platform"
	"github.com/orchardhq/orchard/internal/runtime"
)

const instanceColumns = `id, tenant_id, container_id, container_name, version, port, database_name, admin_hash,
	cpu_limit, memory_limit_mb, status, status_message, backup_schedule, last_backup_at,
	started_at, stopped_at, created_at, updated_at`

type InstanceService struct {
	db       DB
	tc       temporalclient.Client
	rt       runtime.Runtime
	basePort int
}

func NewInstanceService(db DB, tc temporalclient.Client, rt runtime.Runtime, basePort int) *InstanceService {
	return &InstanceService{db: db, tc: tc, rt: rt, basePort: basePort}
}

// CreateInstanceParams holds the caller-supplied fields for a new instance.
// AdminPassword is optional; a random credential is generated when absent.
type CreateInstanceParams struct {
	TenantID      string
	Name          string
	Version       string
	AdminPassword string
	DatabaseName  string
	CPULimit      float64
	MemoryLimitMB int64
	BackupSchedule string
}

// CreateInstanceResult returns the created record plus the plaintext admin
// credential, which is shown exactly once and persisted only as a hash.
type CreateInstanceResult struct {
	Instance      *model.Instance
	AdminPassword string
}

// Create reserves a port and container name for a new instance, persists it
// in creating state and hands the actual provisioning to the lifecycle
// workflow. Port allocation races are arbitrated by the unique constraint
// on instances.port and retried once with a fresh allocation.
func (s *InstanceService) Create(ctx context.Context, params CreateInstanceParams) (*CreateInstanceResult, error) {
	tenant, err := s.tenantForCreate(ctx, params.TenantID)
	if err != nil {
		return nil, err
	}

	adminPassword := params.AdminPassword
	if adminPassword == "" {
		adminPassword, err = platform.NewCredential()
		if err != nil {
			return nil, fmt.Errorf("generate admin credential: %w", err)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin credential: %w", err)
	}

	if params.Version == "" {
		params.Version = "17.0"
	}
	if params.CPULimit <= 0 {
		params.CPULimit = 1.0
	}
	if params.MemoryLimitMB <= 0 {
		params.MemoryLimitMB = 1024
	}
	if params.BackupSchedule == "" {
		params.BackupSchedule = "daily"
	}
	databaseName := params.DatabaseName
	if databaseName == "" {
		databaseName = fmt.Sprintf("odoo_%s", strings.ReplaceAll(tenant.Subdomain, "-", "_"))
	}

	now := time.Now().UTC()
	instance := &model.Instance{
		ID:             platform.NewID(),
		TenantID:       tenant.ID,
		ContainerName:  platform.ContainerName(tenant.Subdomain, params.Name),
		Version:        params.Version,
		DatabaseName:   databaseName,
		AdminHash:      string(hash),
		CPULimit:       params.CPULimit,
		MemoryLimitMB:  params.MemoryLimitMB,
		Status:         model.StatusCreating,
		BackupSchedule: params.BackupSchedule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.insertWithPort(ctx, instance); err != nil {
		return nil, err
	}

	if err := signalLifecycle(ctx, s.tc, instance.ID, model.LifecycleTask{
		WorkflowName: "CreateInstanceWorkflow",
		WorkflowID:   fmt.Sprintf("instance-create-%s", instance.ID),
		Arg:          model.CreateInstanceRequest{InstanceID: instance.ID, AdminPassword: adminPassword},
	}); err != nil {
		return nil, fmt.Errorf("signal CreateInstanceWorkflow: %w", err)
	}

	return &CreateInstanceResult{Instance: instance, AdminPassword: adminPassword}, nil
}

// tenantForCreate loads the owning tenant and enforces the instance quota.
func (s *InstanceService) tenantForCreate(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, subdomain, max_instances, active FROM tenants WHERE id = $1`, tenantID,
	).Scan(&t.ID, &t.Subdomain, &t.MaxInstances, &t.Active)
	if err != nil {
		return nil, mapGetErr(err, "tenant", tenantID)
	}
	if !t.Active {
		return nil, fmt.Errorf("%w: tenant %s is deactivated", ErrInvalidState, tenantID)
	}

	var count int
	if err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM instances WHERE tenant_id = $1", tenantID,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("count instances for tenant %s: %w", tenantID, err)
	}
	if count >= t.MaxInstances {
		return nil, fmt.Errorf("%w: tenant %s has %d of %d instances", ErrQuotaExceeded, tenantID, count, t.MaxInstances)
	}
	return &t, nil
}

// insertWithPort allocates the next free host port and inserts the record.
// Two allocators can pick the same port; the unique constraint decides and
// the loser re-reads and tries once more before surfacing PortConflict.
func (s *InstanceService) insertWithPort(ctx context.Context, instance *model.Instance) error {
	for attempt := 0; attempt < 2; attempt++ {
		port, err := s.nextPort(ctx)
		if err != nil {
			return err
		}
		instance.Port = port

		_, err = s.db.Exec(ctx,
			`INSERT INTO instances (id, tenant_id, container_name, version, port, database_name, admin_hash,
			   cpu_limit, memory_limit_mb, status, backup_schedule, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			instance.ID, instance.TenantID, instance.ContainerName, instance.Version, instance.Port,
			instance.DatabaseName, instance.AdminHash, instance.CPULimit, instance.MemoryLimitMB,
			instance.Status, instance.BackupSchedule, instance.CreatedAt, instance.UpdatedAt,
		)
		if err == nil {
			return nil
		}

		constraint, ok := uniqueViolation(err)
		switch {
		case ok && constraint == "instances_container_name_key":
			return fmt.Errorf("%w: container name %s is taken", ErrNameConflict, instance.ContainerName)
		case ok && constraint == "instances_port_key":
			if attempt == 0 {
				continue
			}
			return fmt.Errorf("%w: port %d was claimed concurrently", ErrPortConflict, instance.Port)
		default:
			return fmt.Errorf("insert instance: %w", err)
		}
	}
	return fmt.Errorf("%w: port allocation retries exhausted", ErrPortConflict)
}

// nextPort returns max(port)+1 across all instance records, or the base
// port when none exist. Ports are never reused while any record holds them.
func (s *InstanceService) nextPort(ctx context.Context) (int, error) {
	var port int
	err := s.db.QueryRow(ctx,
		"SELECT COALESCE(MAX(port) + 1, $1) FROM instances", s.basePort,
	).Scan(&port)
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}
	if port < s.basePort {
		port = s.basePort
	}
	return port, nil
}

func (s *InstanceService) GetByID(ctx context.Context, id string) (*model.Instance, error) {
	var i model.Instance
	err := s.db.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id,
	).Scan(&i.ID, &i.TenantID, &i.ContainerID, &i.ContainerName, &i.Version, &i.Port,
		&i.DatabaseName, &i.AdminHash, &i.CPULimit, &i.MemoryLimitMB, &i.Status,
		&i.StatusMessage, &i.BackupSchedule, &i.LastBackupAt, &i.StartedAt, &i.StoppedAt,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, mapGetErr(err, "instance", id)
	}
	return &i, nil
}

func (s *InstanceService) ListByTenant(ctx context.Context, tenantID string, params request.ListParams) ([]model.Instance, bool, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list instances for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var instances []model.Instance
	for rows.Next() {
		var i model.Instance
		if err := rows.Scan(&i.ID, &i.TenantID, &i.ContainerID, &i.ContainerName, &i.Version, &i.Port,
			&i.DatabaseName, &i.AdminHash, &i.CPULimit, &i.MemoryLimitMB, &i.Status,
			&i.StatusMessage, &i.BackupSchedule, &i.LastBackupAt, &i.StartedAt, &i.StoppedAt,
			&i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, i)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate instances: %w", err)
	}

	hasMore := len(instances) > params.Limit
	if hasMore {
		instances = instances[:params.Limit]
	}
	return instances, hasMore, nil
}

// Start queues a start for a stopped or errored instance. The status stays
// untouched here; the workflow writes it only after the runtime confirms.
func (s *InstanceService) Start(ctx context.Context, id string) error {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if instance.ContainerID == nil {
		return fmt.Errorf("%w: instance %s has no container", ErrInvalidState, id)
	}
	if !model.CanStart(instance.Status) {
		return fmt.Errorf("%w: cannot start instance in status %s", ErrInvalidState, instance.Status)
	}

	if err := signalLifecycle(ctx, s.tc, id, model.LifecycleTask{
		WorkflowName: "StartInstanceWorkflow",
		WorkflowID:   fmt.Sprintf("instance-start-%s", id),
		Arg:          id,
	}); err != nil {
		return fmt.Errorf("signal StartInstanceWorkflow: %w", err)
	}
	return nil
}

// Stop queues a stop for a running instance.
func (s *InstanceService) Stop(ctx context.Context, id string) error {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if instance.ContainerID == nil {
		return fmt.Errorf("%w: instance %s has no container", ErrInvalidState, id)
	}
	if !model.CanStop(instance.Status) {
		return fmt.Errorf("%w: cannot stop instance in status %s", ErrInvalidState, instance.Status)
	}

	if err := signalLifecycle(ctx, s.tc, id, model.LifecycleTask{
		WorkflowName: "StopInstanceWorkflow",
		WorkflowID:   fmt.Sprintf("instance-stop-%s", id),
		Arg:          id,
	}); err != nil {
		return fmt.Errorf("signal StopInstanceWorkflow: %w", err)
	}
	return nil
}

// Restart queues a restart. The record moves to updating while the
// container bounces; the workflow settles it to running or error.
func (s *InstanceService) Restart(ctx context.Context, id string) error {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if instance.ContainerID == nil {
		return fmt.Errorf("%w: instance %s has no container", ErrInvalidState, id)
	}
	if !model.CanRestart(instance.Status) {
		return fmt.Errorf("%w: cannot restart instance in status %s", ErrInvalidState, instance.Status)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE instances SET status = $1, updated_at = now() WHERE id = $2",
		model.StatusUpdating, id,
	)
	if err != nil {
		return fmt.Errorf("set instance %s status to updating: %w", id, err)
	}

	if err := signalLifecycle(ctx, s.tc, id, model.LifecycleTask{
		WorkflowName: "RestartInstanceWorkflow",
		WorkflowID:   fmt.Sprintf("instance-restart-%s", id),
		Arg:          id,
	}); err != nil {
		return fmt.Errorf("signal RestartInstanceWorkflow: %w", err)
	}
	return nil
}

// Delete marks the record deleting and queues teardown. Deletion is
// idempotent: queueing it again for a deleting instance is a no-op signal.
func (s *InstanceService) Delete(ctx context.Context, id string) error {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if instance.Status != model.StatusDeleting {
		_, err = s.db.Exec(ctx,
			"UPDATE instances SET status = $1, updated_at = now() WHERE id = $2",
			model.StatusDeleting, id,
		)
		if err != nil {
			return fmt.Errorf("set instance %s status to deleting: %w", id, err)
		}
	}

	if err := signalLifecycle(ctx, s.tc, id, model.LifecycleTask{
		WorkflowName: "DeleteInstanceWorkflow",
		WorkflowID:   fmt.Sprintf("instance-delete-%s", id),
		Arg:          id,
	}); err != nil {
		return fmt.Errorf("signal DeleteInstanceWorkflow: %w", err)
	}
	return nil
}

// Stats reads a live resource usage snapshot straight from the runtime.
func (s *InstanceService) Stats(ctx context.Context, id string) (*model.InstanceStats, error) {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance.ContainerID == nil {
		return nil, fmt.Errorf("%w: instance %s has no container", ErrInvalidState, id)
	}

	state, err := s.rt.Inspect(ctx, *instance.ContainerID)
	if err != nil {
		return nil, s.mapRuntimeErr("inspect", id, err)
	}

	raw, err := s.rt.Stats(ctx, *instance.ContainerID)
	if err != nil {
		return nil, s.mapRuntimeErr("stats", id, err)
	}

	return &model.InstanceStats{
		InstanceID:     id,
		ContainerState: string(state),
		CPUPercent:     runtime.CPUPercent(raw),
		MemoryUsageMB:  float64(raw.MemoryUsage) / (1024 * 1024),
		MemoryLimitMB:  float64(raw.MemoryLimit) / (1024 * 1024),
		MemoryPercent:  runtime.MemoryPercent(raw),
		NetworkRxBytes: raw.RxBytes,
		NetworkTxBytes: raw.TxBytes,
	}, nil
}

// Reconcile inspects the live container and converges the persisted status
// onto it. The write is conditional, so repeating it with an unchanged
// container is a no-op. Instances mid-deletion are left alone.
func (s *InstanceService) Reconcile(ctx context.Context, id string) (*model.Instance, error) {
	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance.Status == model.StatusDeleting {
		return instance, nil
	}
	if instance.ContainerID == nil {
		return instance, nil
	}

	var status string
	var message *string
	state, err := s.rt.Inspect(ctx, *instance.ContainerID)
	switch {
	case err == nil:
		status = model.StatusForContainerState(string(state))
	case errors.Is(err, runtime.ErrNotFound):
		status = model.StatusError
		msg := "container missing from runtime"
		message = &msg
	default:
		return nil, s.mapRuntimeErr("inspect", id, err)
	}

	if status != instance.Status {
		_, err = s.db.Exec(ctx,
			`UPDATE instances SET status = $1, status_message = $2, updated_at = now()
			 WHERE id = $3 AND status != $4`,
			status, message, id, model.StatusDeleting,
		)
		if err != nil {
			return nil, fmt.Errorf("reconcile instance %s: %w", id, err)
		}
		instance.Status = status
		instance.StatusMessage = message
	}
	return instance, nil
}

func (s *InstanceService) mapRuntimeErr(op, id string, err error) error {
	switch {
	case errors.Is(err, runtime.ErrUnavailable):
		return fmt.Errorf("%w: %s instance %s: %v", ErrRuntimeUnavailable, op, id, err)
	case errors.Is(err, runtime.ErrNotFound):
		return fmt.Errorf("%w: %s instance %s: container missing", ErrOperationFailed, op, id)
	default:
		return fmt.Errorf("%w: %s instance %s: %v", ErrOperationFailed, op, id, err)
	}
}
