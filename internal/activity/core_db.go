package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orchardhq/orchard/internal/model"
	"github.com/orchardhq/orchard/internal/platform"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CoreDB contains activities that read from and update the core database.
type CoreDB struct {
	db DB
}

// NewCoreDB creates a new CoreDB activity struct.
func NewCoreDB(db DB) *CoreDB {
	return &CoreDB{db: db}
}

// GetInstanceByID retrieves an instance by its ID.
func (a *CoreDB) GetInstanceByID(ctx context.Context, id string) (*model.Instance, error) {
	var i model.Instance
	err := a.db.QueryRow(ctx,
		`SELECT id, tenant_id, container_id, container_name, version, port, database_name, admin_hash,
		   cpu_limit, memory_limit_mb, status, status_message, backup_schedule, last_backup_at,
		   started_at, stopped_at, created_at, updated_at
		 FROM instances WHERE id = $1`, id,
	).Scan(&i.ID, &i.TenantID, &i.ContainerID, &i.ContainerName, &i.Version, &i.Port,
		&i.DatabaseName, &i.AdminHash, &i.CPULimit, &i.MemoryLimitMB, &i.Status,
		&i.StatusMessage, &i.BackupSchedule, &i.LastBackupAt, &i.StartedAt, &i.StoppedAt,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get instance by id: %w", err)
	}
	return &i, nil
}

// GetTenantByID retrieves a tenant by its ID.
func (a *CoreDB) GetTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := a.db.QueryRow(ctx,
		`SELECT id, name, subdomain, owner_id, max_instances, storage_limit_gb, active, last_activity_at, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Subdomain, &t.OwnerID, &t.MaxInstances,
		&t.StorageLimitGB, &t.Active, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return &t, nil
}

// GetBackupByID retrieves a backup record by its ID.
func (a *CoreDB) GetBackupByID(ctx context.Context, id string) (*model.Backup, error) {
	var b model.Backup
	err := a.db.QueryRow(ctx,
		`SELECT id, tenant_id, type, name, file_path, size_bytes, remote_key, status, status_message, created_at, completed_at
		 FROM backups WHERE id = $1`, id,
	).Scan(&b.ID, &b.TenantID, &b.Type, &b.Name, &b.FilePath, &b.SizeBytes,
		&b.RemoteKey, &b.Status, &b.StatusMessage, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get backup by id: %w", err)
	}
	return &b, nil
}

// SetInstanceStatusParams holds the parameters for SetInstanceStatus.
type SetInstanceStatusParams struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	StatusMessage *string `json:"status_message,omitempty"`
}

// SetInstanceStatus records a confirmed status transition. Callers invoke
// it only after the runtime has acknowledged the corresponding operation.
func (a *CoreDB) SetInstanceStatus(ctx context.Context, params SetInstanceStatusParams) error {
	_, err := a.db.Exec(ctx,
		"UPDATE instances SET status = $1, status_message = $2, updated_at = now() WHERE id = $3",
		params.Status, params.StatusMessage, params.ID,
	)
	return err
}

// ReconcileInstanceStatusParams holds the parameters for ReconcileInstanceStatus.
type ReconcileInstanceStatusParams struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	StatusMessage *string `json:"status_message,omitempty"`
}

// ReconcileInstanceStatus converges the persisted status onto the observed
// one. The write is conditional on the status actually differing and never
// touches instances that are mid-deletion, so repeated application with
// the same observation is a no-op. Returns whether a row changed.
func (a *CoreDB) ReconcileInstanceStatus(ctx context.Context, params ReconcileInstanceStatusParams) (bool, error) {
	tag, err := a.db.Exec(ctx,
		`UPDATE instances SET status = $1, status_message = $2, updated_at = now()
		 WHERE id = $3 AND status != $1 AND status != $4`,
		params.Status, params.StatusMessage, params.ID, model.StatusDeleting,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetInstanceContainerIDParams holds the parameters for SetInstanceContainerID.
type SetInstanceContainerIDParams struct {
	ID          string `json:"id"`
	ContainerID string `json:"container_id"`
}

// SetInstanceContainerID persists the container handle. Written as soon as
// the engine returns it, before the container is even started, so a later
// failure never orphans the container.
func (a *CoreDB) SetInstanceContainerID(ctx context.Context, params SetInstanceContainerIDParams) error {
	_, err := a.db.Exec(ctx,
		"UPDATE instances SET container_id = $1, updated_at = now() WHERE id = $2",
		params.ContainerID, params.ID,
	)
	return err
}

// SetInstanceStarted moves an instance to running and stamps started_at.
func (a *CoreDB) SetInstanceStarted(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE instances SET status = $1, status_message = NULL, started_at = now(), updated_at = now() WHERE id = $2`,
		model.StatusRunning, id,
	)
	return err
}

// SetInstanceStopped moves an instance to stopped and stamps stopped_at.
func (a *CoreDB) SetInstanceStopped(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE instances SET status = $1, status_message = NULL, stopped_at = now(), updated_at = now() WHERE id = $2`,
		model.StatusStopped, id,
	)
	return err
}

// DeleteInstanceRecord removes the instance row, releasing its port and
// container name reservations.
func (a *CoreDB) DeleteInstanceRecord(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx, "DELETE FROM instances WHERE id = $1", id)
	return err
}

// ListInstanceIDs returns the IDs of all instances that hold a container
// handle and are not mid-deletion. Input for the reconciliation sweep.
func (a *CoreDB) ListInstanceIDs(ctx context.Context) ([]string, error) {
	rows, err := a.db.Query(ctx,
		"SELECT id FROM instances WHERE container_id IS NOT NULL AND status != $1 ORDER BY id",
		model.StatusDeleting,
	)
	if err != nil {
		return nil, fmt.Errorf("list instance ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instance id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListActiveTenantIDs returns the IDs of active tenants that have at least
// one instance. Input for the scheduled backup sweep.
func (a *CoreDB) ListActiveTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := a.db.Query(ctx,
		`SELECT DISTINCT t.id FROM tenants t
		 JOIN instances i ON i.tenant_id = t.id
		 WHERE t.active ORDER BY t.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active tenant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetTenantDatabases returns the distinct database names of a tenant's
// instances.
func (a *CoreDB) GetTenantDatabases(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := a.db.Query(ctx,
		"SELECT DISTINCT database_name FROM instances WHERE tenant_id = $1 ORDER BY database_name",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenant databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FinalizeBackupParams holds the parameters for FinalizeBackup.
type FinalizeBackupParams struct {
	ID        string  `json:"id"`
	FilePath  string  `json:"file_path"`
	SizeBytes int64   `json:"size_bytes"`
	RemoteKey *string `json:"remote_key,omitempty"`
}

// FinalizeBackup marks a backup completed with its artifact metadata.
func (a *CoreDB) FinalizeBackup(ctx context.Context, params FinalizeBackupParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE backups SET file_path = $1, size_bytes = $2, remote_key = $3, status = $4, status_message = NULL, completed_at = now()
		 WHERE id = $5`,
		params.FilePath, params.SizeBytes, params.RemoteKey, model.BackupStatusCompleted, params.ID,
	)
	return err
}

// SetBackupFailedParams holds the parameters for SetBackupFailed.
type SetBackupFailedParams struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SetBackupFailed marks a backup failed with the failure reason.
func (a *CoreDB) SetBackupFailed(ctx context.Context, params SetBackupFailedParams) error {
	_, err := a.db.Exec(ctx,
		"UPDATE backups SET status = $1, status_message = $2 WHERE id = $3",
		model.BackupStatusFailed, params.Message, params.ID,
	)
	return err
}

// DeleteBackupRecord removes the backup row.
func (a *CoreDB) DeleteBackupRecord(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx, "DELETE FROM backups WHERE id = $1", id)
	return err
}

// CreateBackupRecordParams holds the parameters for CreateBackupRecord.
type CreateBackupRecordParams struct {
	TenantID *string `json:"tenant_id,omitempty"`
	Type     string  `json:"type"`
}

// CreateBackupRecord inserts a pending backup record with a timestamped
// name. Used by the scheduled backup sweep, which creates records outside
// the API path.
func (a *CoreDB) CreateBackupRecord(ctx context.Context, params CreateBackupRecordParams) (*model.Backup, error) {
	scope := "platform"
	if params.TenantID != nil {
		err := a.db.QueryRow(ctx,
			"SELECT subdomain FROM tenants WHERE id = $1", *params.TenantID,
		).Scan(&scope)
		if err != nil {
			return nil, fmt.Errorf("get tenant subdomain: %w", err)
		}
	}

	now := time.Now().UTC()
	b := &model.Backup{
		ID:        platform.NewID(),
		TenantID:  params.TenantID,
		Type:      params.Type,
		Name:      fmt.Sprintf("%s_%s_%s", scope, params.Type, now.Format("20060102_150405")),
		Status:    model.BackupStatusPending,
		CreatedAt: now,
	}
	_, err := a.db.Exec(ctx,
		`INSERT INTO backups (id, tenant_id, type, name, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.TenantID, b.Type, b.Name, b.Status, b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup record: %w", err)
	}
	return b, nil
}

// ListExpiredBackups returns completed backups older than the retention
// window.
func (a *CoreDB) ListExpiredBackups(ctx context.Context, retentionDays int) ([]model.Backup, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	rows, err := a.db.Query(ctx,
		`SELECT id, tenant_id, type, name, file_path, size_bytes, remote_key, status, status_message, created_at, completed_at
		 FROM backups WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		model.BackupStatusCompleted, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Type, &b.Name, &b.FilePath, &b.SizeBytes,
			&b.RemoteKey, &b.Status, &b.StatusMessage, &b.CreatedAt, &b.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// TouchTenantBackupTime stamps last_backup_at on all of a tenant's
// instances after a successful tenant backup.
func (a *CoreDB) TouchTenantBackupTime(ctx context.Context, tenantID string) error {
	_, err := a.db.Exec(ctx,
		"UPDATE instances SET last_backup_at = now() WHERE tenant_id = $1", tenantID,
	)
	return err
}
