package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// CreateBackupWorkflow produces the artifact for a pending backup record:
// a gzipped pg_dump for database backups, a tarball of the data directory
// for file backups. The artifact is uploaded to object storage when
// configured, and the record is finalized with path, size and remote key.
// On failure the record is marked failed and any partial artifact removed.
func CreateBackupWorkflow(ctx workflow.Context, backupID string) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)
	bkCtx := withBackupActivityOptions(ctx)

	var backup model.Backup
	if err := workflow.ExecuteActivity(dbCtx, "GetBackupByID", backupID).Get(ctx, &backup); err != nil {
		_ = setBackupFailed(dbCtx, backupID, err)
		return err
	}

	logger.Info("backup started", "backup_id", backupID, "name", backup.Name, "type", backup.Type)

	var path string
	var err error
	switch backup.Type {
	case model.BackupTypeDatabase:
		path, err = dumpForBackup(ctx, dbCtx, bkCtx, &backup)
	case model.BackupTypeFiles:
		path, err = archiveForBackup(ctx, dbCtx, bkCtx, &backup)
	default:
		err = fmt.Errorf("unknown backup type %q", backup.Type)
	}
	if err != nil {
		_ = setBackupFailed(dbCtx, backupID, err)
		return err
	}

	var size int64
	if err := workflow.ExecuteActivity(bkCtx, "ArtifactSize", path).Get(ctx, &size); err != nil {
		_ = workflow.ExecuteActivity(bkCtx, "RemoveArtifact", path).Get(ctx, nil)
		_ = setBackupFailed(dbCtx, backupID, err)
		return err
	}

	ext := activity.ExtDatabase
	if backup.Type == model.BackupTypeFiles {
		ext = activity.ExtFiles
	}
	var remoteKey string
	err = workflow.ExecuteActivity(bkCtx, "UploadArtifact", activity.UploadArtifactParams{
		FilePath: path,
		Key:      activity.RemoteKey(backup.Name, ext),
	}).Get(ctx, &remoteKey)
	if err != nil {
		_ = workflow.ExecuteActivity(bkCtx, "RemoveArtifact", path).Get(ctx, nil)
		_ = setBackupFailed(dbCtx, backupID, err)
		return err
	}

	var keyPtr *string
	if remoteKey != "" {
		keyPtr = &remoteKey
	}
	err = workflow.ExecuteActivity(dbCtx, "FinalizeBackup", activity.FinalizeBackupParams{
		ID:        backupID,
		FilePath:  path,
		SizeBytes: size,
		RemoteKey: keyPtr,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}

	if backup.TenantID != nil {
		if err := workflow.ExecuteActivity(dbCtx, "TouchTenantBackupTime", *backup.TenantID).Get(ctx, nil); err != nil {
			logger.Warn("recording tenant backup time failed", "tenant_id", *backup.TenantID, "error", err)
		}
	}

	logger.Info("backup completed", "backup_id", backupID, "path", path, "size_bytes", size)
	return nil
}

// dumpForBackup resolves which database to dump and produces the dump.
// Platform-wide backups dump the connection URL's own database.
func dumpForBackup(ctx workflow.Context, dbCtx, bkCtx workflow.Context, backup *model.Backup) (string, error) {
	database, err := backupDatabase(ctx, dbCtx, backup)
	if err != nil {
		return "", err
	}

	var path string
	err = workflow.ExecuteActivity(bkCtx, "DumpDatabase", activity.DumpDatabaseParams{
		Database:     database,
		ArtifactName: backup.Name,
	}).Get(ctx, &path)
	return path, err
}

// archiveForBackup resolves the data directory scope and produces the
// tarball.
func archiveForBackup(ctx workflow.Context, dbCtx, bkCtx workflow.Context, backup *model.Backup) (string, error) {
	subdomain, err := backupSubdomain(ctx, dbCtx, backup)
	if err != nil {
		return "", err
	}

	var path string
	err = workflow.ExecuteActivity(bkCtx, "ArchiveFiles", activity.ArchiveFilesParams{
		Subdomain:    subdomain,
		ArtifactName: backup.Name,
	}).Get(ctx, &path)
	return path, err
}

// backupDatabase returns the database a backup covers: the tenant's
// application database, or empty for the platform-wide default.
func backupDatabase(ctx workflow.Context, dbCtx workflow.Context, backup *model.Backup) (string, error) {
	if backup.TenantID == nil {
		return "", nil
	}
	var databases []string
	if err := workflow.ExecuteActivity(dbCtx, "GetTenantDatabases", *backup.TenantID).Get(ctx, &databases); err != nil {
		return "", err
	}
	if len(databases) == 0 {
		return "", fmt.Errorf("tenant %s has no instance databases", *backup.TenantID)
	}
	return databases[0], nil
}

// backupSubdomain returns the data directory scope: the tenant's
// subdomain, or empty for the whole data root.
func backupSubdomain(ctx workflow.Context, dbCtx workflow.Context, backup *model.Backup) (string, error) {
	if backup.TenantID == nil {
		return "", nil
	}
	var tenant model.Tenant
	if err := workflow.ExecuteActivity(dbCtx, "GetTenantByID", *backup.TenantID).Get(ctx, &tenant); err != nil {
		return "", err
	}
	return tenant.Subdomain, nil
}

// RestoreBackupWorkflow replays a completed backup. When the local
// artifact is gone it is fetched back from object storage first.
func RestoreBackupWorkflow(ctx workflow.Context, backupID string) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)
	bkCtx := withBackupActivityOptions(ctx)

	var backup model.Backup
	if err := workflow.ExecuteActivity(dbCtx, "GetBackupByID", backupID).Get(ctx, &backup); err != nil {
		return err
	}
	if backup.Status != model.BackupStatusCompleted {
		return fmt.Errorf("backup %s is %s, not completed", backupID, backup.Status)
	}

	logger.Info("restore started", "backup_id", backupID, "name", backup.Name, "type", backup.Type)

	var exists bool
	if err := workflow.ExecuteActivity(bkCtx, "ArtifactExists", backup.FilePath).Get(ctx, &exists); err != nil {
		return err
	}
	if !exists {
		if backup.RemoteKey == nil {
			return fmt.Errorf("backup %s artifact is gone and no remote copy exists", backupID)
		}
		logger.Info("local artifact missing, downloading from object storage", "key", *backup.RemoteKey)
		err := workflow.ExecuteActivity(bkCtx, "DownloadArtifact", activity.DownloadArtifactParams{
			Key:      *backup.RemoteKey,
			FilePath: backup.FilePath,
		}).Get(ctx, nil)
		if err != nil {
			return err
		}
	}

	switch backup.Type {
	case model.BackupTypeDatabase:
		database, err := backupDatabase(ctx, dbCtx, &backup)
		if err != nil {
			return err
		}
		err = workflow.ExecuteActivity(bkCtx, "RestoreDatabase", activity.RestoreDatabaseParams{
			Database: database,
			DumpPath: backup.FilePath,
		}).Get(ctx, nil)
		if err != nil {
			return err
		}
	case model.BackupTypeFiles:
		subdomain, err := backupSubdomain(ctx, dbCtx, &backup)
		if err != nil {
			return err
		}
		err = workflow.ExecuteActivity(bkCtx, "ExtractFiles", activity.ExtractFilesParams{
			ArchivePath: backup.FilePath,
			Subdomain:   subdomain,
		}).Get(ctx, nil)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown backup type %q", backup.Type)
	}

	logger.Info("restore completed", "backup_id", backupID)
	return nil
}

// DeleteBackupWorkflow disposes of a backup's artifacts and then its
// record. Artifact disposal is best effort; the record goes away
// regardless so retention can always make progress.
func DeleteBackupWorkflow(ctx workflow.Context, backupID string) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)
	bkCtx := withBackupActivityOptions(ctx)

	var backup model.Backup
	if err := workflow.ExecuteActivity(dbCtx, "GetBackupByID", backupID).Get(ctx, &backup); err != nil {
		return err
	}

	if backup.FilePath != "" {
		if err := workflow.ExecuteActivity(bkCtx, "RemoveArtifact", backup.FilePath).Get(ctx, nil); err != nil {
			logger.Error("local artifact removal failed", "backup_id", backupID, "path", backup.FilePath, "error", err)
		}
	}
	if backup.RemoteKey != nil {
		if err := workflow.ExecuteActivity(bkCtx, "DeleteObject", *backup.RemoteKey).Get(ctx, nil); err != nil {
			logger.Error("remote artifact removal failed", "backup_id", backupID, "key", *backup.RemoteKey, "error", err)
		}
	}

	return workflow.ExecuteActivity(dbCtx, "DeleteBackupRecord", backupID).Get(ctx, nil)
}

// CleanupBackupsWorkflow removes completed backups older than the
// retention window. Per-backup failures are logged and skipped.
func CleanupBackupsWorkflow(ctx workflow.Context, retentionDays int) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)

	var expired []model.Backup
	if err := workflow.ExecuteActivity(dbCtx, "ListExpiredBackups", retentionDays).Get(ctx, &expired); err != nil {
		return err
	}

	var failures int
	for _, backup := range expired {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "backup-expire-" + backup.ID,
		})
		if err := workflow.ExecuteChildWorkflow(childCtx, DeleteBackupWorkflow, backup.ID).Get(ctx, nil); err != nil {
			logger.Error("expired backup removal failed", "backup_id", backup.ID, "error", err)
			failures++
		}
	}

	logger.Info("backup retention sweep complete", "expired", len(expired), "failures", failures, "retention_days", retentionDays)
	return nil
}

// ScheduledBackupParams holds the parameters for ScheduledBackupWorkflow,
// taken from the backup policy file.
type ScheduledBackupParams struct {
	Type          string `json:"type"`
	RetentionDays int    `json:"retention_days"`
}

// ScheduledBackupWorkflow is the cron entry point for policy-driven
// backups: one backup per active tenant with instances, then a retention
// sweep. Per-tenant failures are logged and skipped.
func ScheduledBackupWorkflow(ctx workflow.Context, params ScheduledBackupParams) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)

	var tenantIDs []string
	if err := workflow.ExecuteActivity(dbCtx, "ListActiveTenantIDs").Get(ctx, &tenantIDs); err != nil {
		return err
	}

	var failures int
	for _, tenantID := range tenantIDs {
		tenantID := tenantID
		var backup model.Backup
		err := workflow.ExecuteActivity(dbCtx, "CreateBackupRecord", activity.CreateBackupRecordParams{
			TenantID: &tenantID,
			Type:     params.Type,
		}).Get(ctx, &backup)
		if err != nil {
			logger.Error("scheduled backup record creation failed", "tenant_id", tenantID, "error", err)
			failures++
			continue
		}

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "backup-create-" + backup.ID,
		})
		if err := workflow.ExecuteChildWorkflow(childCtx, CreateBackupWorkflow, backup.ID).Get(ctx, nil); err != nil {
			logger.Error("scheduled backup failed", "tenant_id", tenantID, "backup_id", backup.ID, "error", err)
			failures++
		}
	}

	if params.RetentionDays > 0 {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{})
		if err := workflow.ExecuteChildWorkflow(childCtx, CleanupBackupsWorkflow, params.RetentionDays).Get(ctx, nil); err != nil {
			logger.Error("retention sweep failed", "error", err)
		}
	}

	logger.Info("scheduled backup sweep complete", "tenants", len(tenantIDs), "failures", failures)
	return nil
}
