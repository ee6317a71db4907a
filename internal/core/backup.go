package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/orchardhq/orchard/internal/model"
	"github.com/orchardhq/orchard/internal/platform"
)

const backupColumns = `id, tenant_id, type, name, file_path, size_bytes, remote_key, status, status_message, created_at, completed_at`

type BackupService struct {
	db DB
	tc temporalclient.Client
}

func NewBackupService(db DB, tc temporalclient.Client) *BackupService {
	return &BackupService{db: db, tc: tc}
}

// CreateBackupParams holds the caller-supplied fields for a new backup.
// TenantID is nil for a platform-wide backup.
type CreateBackupParams struct {
	TenantID *string
	Type     string
}

// Create records a pending backup and starts the backup workflow. The
// record is finalized (completed or failed) by the workflow.
func (s *BackupService) Create(ctx context.Context, params CreateBackupParams) (*model.Backup, error) {
	if params.Type != model.BackupTypeDatabase && params.Type != model.BackupTypeFiles {
		return nil, fmt.Errorf("%w: unknown backup type %q", ErrInvalidState, params.Type)
	}

	scope := "platform"
	if params.TenantID != nil {
		var subdomain string
		err := s.db.QueryRow(ctx,
			"SELECT subdomain FROM tenants WHERE id = $1", *params.TenantID,
		).Scan(&subdomain)
		if err != nil {
			return nil, mapGetErr(err, "tenant", *params.TenantID)
		}
		scope = subdomain
	}

	now := time.Now().UTC()
	backup := &model.Backup{
		ID:        platform.NewID(),
		TenantID:  params.TenantID,
		Type:      params.Type,
		Name:      fmt.Sprintf("%s_%s_%s", scope, params.Type, now.Format("20060102_150405")),
		Status:    model.BackupStatusPending,
		CreatedAt: now,
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO backups (id, tenant_id, type, name, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		backup.ID, backup.TenantID, backup.Type, backup.Name, backup.Status, backup.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}

	if err := startWorkflow(ctx, s.tc, "CreateBackupWorkflow",
		fmt.Sprintf("backup-create-%s", backup.ID), backup.ID); err != nil {
		return nil, fmt.Errorf("start CreateBackupWorkflow: %w", err)
	}
	return backup, nil
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.Backup, error) {
	var b model.Backup
	err := s.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE id = $1`, id,
	).Scan(&b.ID, &b.TenantID, &b.Type, &b.Name, &b.FilePath, &b.SizeBytes,
		&b.RemoteKey, &b.Status, &b.StatusMessage, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		return nil, mapGetErr(err, "backup", id)
	}
	return &b, nil
}

// List returns backups newest first. With a non-nil tenantID only that
// tenant's backups are returned; otherwise all, platform-wide included.
func (s *BackupService) List(ctx context.Context, tenantID *string, limit int, cursor string) ([]model.Backup, bool, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE 1=1`
	args := []any{}
	argIdx := 1

	if tenantID != nil {
		query += fmt.Sprintf(` AND tenant_id = $%d`, argIdx)
		args = append(args, *tenantID)
		argIdx++
	}
	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Type, &b.Name, &b.FilePath, &b.SizeBytes,
			&b.RemoteKey, &b.Status, &b.StatusMessage, &b.CreatedAt, &b.CompletedAt); err != nil {
			return nil, false, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate backups: %w", err)
	}

	hasMore := len(backups) > limit
	if hasMore {
		backups = backups[:limit]
	}
	return backups, hasMore, nil
}

// Restore replays a completed backup. Pending or failed backups have no
// usable artifact and are rejected.
func (s *BackupService) Restore(ctx context.Context, id string) error {
	backup, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if backup.Status != model.BackupStatusCompleted {
		return fmt.Errorf("%w: backup %s is %s, only completed backups can be restored", ErrInvalidState, id, backup.Status)
	}

	if err := startWorkflow(ctx, s.tc, "RestoreBackupWorkflow",
		fmt.Sprintf("backup-restore-%s", id), id); err != nil {
		return fmt.Errorf("start RestoreBackupWorkflow: %w", err)
	}
	return nil
}

// Delete removes a backup's artifacts (local file, S3 object) and then its
// record, via the delete workflow.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := startWorkflow(ctx, s.tc, "DeleteBackupWorkflow",
		fmt.Sprintf("backup-delete-%s", id), id); err != nil {
		return fmt.Errorf("start DeleteBackupWorkflow: %w", err)
	}
	return nil
}

// Cleanup starts a retention sweep removing backups older than
// retentionDays. Zero sweeps everything up to now. Individual removal
// failures do not stop the sweep.
func (s *BackupService) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays < 0 {
		return fmt.Errorf("%w: retention days must not be negative", ErrInvalidState)
	}
	wfID := fmt.Sprintf("backup-cleanup-%s", time.Now().UTC().Format("20060102150405"))
	if err := startWorkflow(ctx, s.tc, "CleanupBackupsWorkflow", wfID, retentionDays); err != nil {
		return fmt.Errorf("start CleanupBackupsWorkflow: %w", err)
	}
	return nil
}
