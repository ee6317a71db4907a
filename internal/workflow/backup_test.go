package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// ---------- CreateBackupWorkflow ----------

type CreateBackupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *CreateBackupWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *CreateBackupWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *CreateBackupWorkflowTestSuite) TestSuccess_TenantDatabase() {
	backupID := "test-backup-1"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeDatabase,
		Name:     "acme_database_20260830_120000",
		Status:   model.BackupStatusPending,
	}
	path := "/var/backups/orchard/acme_database_20260830_120000.sql.gz"

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{"odoo_acme"}, nil)
	s.env.OnActivity("DumpDatabase", mock.Anything, activity.DumpDatabaseParams{
		Database: "odoo_acme", ArtifactName: backup.Name,
	}).Return(path, nil)
	s.env.OnActivity("ArtifactSize", mock.Anything, path).Return(int64(4096), nil)
	s.env.OnActivity("UploadArtifact", mock.Anything, activity.UploadArtifactParams{
		FilePath: path, Key: "backups/acme_database_20260830_120000.sql.gz",
	}).Return("backups/acme_database_20260830_120000.sql.gz", nil)
	s.env.OnActivity("FinalizeBackup", mock.Anything, activity.FinalizeBackupParams{
		ID:        backupID,
		FilePath:  path,
		SizeBytes: 4096,
		RemoteKey: strPtr("backups/acme_database_20260830_120000.sql.gz"),
	}).Return(nil)
	s.env.OnActivity("TouchTenantBackupTime", mock.Anything, tenantID).Return(nil)

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CreateBackupWorkflowTestSuite) TestSuccess_PlatformDatabase_NoObjectStorage() {
	backupID := "test-backup-2"
	backup := model.Backup{
		ID:     backupID,
		Type:   model.BackupTypeDatabase,
		Name:   "platform_database_20260830_120000",
		Status: model.BackupStatusPending,
	}
	path := "/var/backups/orchard/platform_database_20260830_120000.sql.gz"

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("DumpDatabase", mock.Anything, activity.DumpDatabaseParams{
		Database: "", ArtifactName: backup.Name,
	}).Return(path, nil)
	s.env.OnActivity("ArtifactSize", mock.Anything, path).Return(int64(2048), nil)
	// Object storage not configured; upload reports an empty key.
	s.env.OnActivity("UploadArtifact", mock.Anything, mock.Anything).Return("", nil)
	s.env.OnActivity("FinalizeBackup", mock.Anything, activity.FinalizeBackupParams{
		ID:        backupID,
		FilePath:  path,
		SizeBytes: 2048,
	}).Return(nil)
	// TenantID nil; no TouchTenantBackupTime mock.

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CreateBackupWorkflowTestSuite) TestSuccess_TenantFiles() {
	backupID := "test-backup-3"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeFiles,
		Name:     "acme_files_20260830_120000",
		Status:   model.BackupStatusPending,
	}
	tenant := model.Tenant{ID: tenantID, Subdomain: "acme"}
	path := "/var/backups/orchard/acme_files_20260830_120000.tar.gz"

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("GetTenantByID", mock.Anything, tenantID).Return(&tenant, nil)
	s.env.OnActivity("ArchiveFiles", mock.Anything, activity.ArchiveFilesParams{
		Subdomain: "acme", ArtifactName: backup.Name,
	}).Return(path, nil)
	s.env.OnActivity("ArtifactSize", mock.Anything, path).Return(int64(8192), nil)
	s.env.OnActivity("UploadArtifact", mock.Anything, activity.UploadArtifactParams{
		FilePath: path, Key: "backups/acme_files_20260830_120000.tar.gz",
	}).Return("backups/acme_files_20260830_120000.tar.gz", nil)
	s.env.OnActivity("FinalizeBackup", mock.Anything, mock.MatchedBy(func(params activity.FinalizeBackupParams) bool {
		return params.ID == backupID && params.SizeBytes == 8192 && params.RemoteKey != nil
	})).Return(nil)
	s.env.OnActivity("TouchTenantBackupTime", mock.Anything, tenantID).Return(nil)

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CreateBackupWorkflowTestSuite) TestDumpFails_SetsStatusFailed() {
	backupID := "test-backup-4"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeDatabase,
		Name:     "acme_database_20260830_120000",
		Status:   model.BackupStatusPending,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{"odoo_acme"}, nil)
	s.env.OnActivity("DumpDatabase", mock.Anything, mock.Anything).Return("", fmt.Errorf("pg_dump exited 1"))
	s.env.OnActivity("SetBackupFailed", mock.Anything, matchBackupFailed(backupID)).Return(nil)

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *CreateBackupWorkflowTestSuite) TestTenantWithoutDatabases_SetsStatusFailed() {
	backupID := "test-backup-5"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeDatabase,
		Name:     "acme_database_20260830_120000",
		Status:   model.BackupStatusPending,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{}, nil)
	s.env.OnActivity("SetBackupFailed", mock.Anything, matchBackupFailed(backupID)).Return(nil)

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *CreateBackupWorkflowTestSuite) TestUploadFails_RemovesArtifactAndSetsStatusFailed() {
	backupID := "test-backup-6"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeDatabase,
		Name:     "acme_database_20260830_120000",
		Status:   model.BackupStatusPending,
	}
	path := "/var/backups/orchard/acme_database_20260830_120000.sql.gz"

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{"odoo_acme"}, nil)
	s.env.OnActivity("DumpDatabase", mock.Anything, mock.Anything).Return(path, nil)
	s.env.OnActivity("ArtifactSize", mock.Anything, path).Return(int64(4096), nil)
	s.env.OnActivity("UploadArtifact", mock.Anything, mock.Anything).Return("", fmt.Errorf("bucket unreachable"))
	s.env.OnActivity("RemoveArtifact", mock.Anything, path).Return(nil)
	s.env.OnActivity("SetBackupFailed", mock.Anything, matchBackupFailed(backupID)).Return(nil)

	s.env.ExecuteWorkflow(CreateBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- RestoreBackupWorkflow ----------

type RestoreBackupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *RestoreBackupWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *RestoreBackupWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *RestoreBackupWorkflowTestSuite) TestSuccess_LocalDatabaseArtifact() {
	backupID := "test-backup-1"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeDatabase,
		Name:     "acme_database_20260830_120000",
		FilePath: "/var/backups/orchard/acme_database_20260830_120000.sql.gz",
		Status:   model.BackupStatusCompleted,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("ArtifactExists", mock.Anything, backup.FilePath).Return(true, nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{"odoo_acme"}, nil)
	s.env.OnActivity("RestoreDatabase", mock.Anything, activity.RestoreDatabaseParams{
		Database: "odoo_acme", DumpPath: backup.FilePath,
	}).Return(nil)

	s.env.ExecuteWorkflow(RestoreBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RestoreBackupWorkflowTestSuite) TestDownloadsWhenLocalArtifactGone() {
	backupID := "test-backup-2"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:        backupID,
		TenantID:  &tenantID,
		Type:      model.BackupTypeDatabase,
		Name:      "acme_database_20260830_120000",
		FilePath:  "/var/backups/orchard/acme_database_20260830_120000.sql.gz",
		RemoteKey: strPtr("backups/acme_database_20260830_120000.sql.gz"),
		Status:    model.BackupStatusCompleted,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("ArtifactExists", mock.Anything, backup.FilePath).Return(false, nil)
	s.env.OnActivity("DownloadArtifact", mock.Anything, activity.DownloadArtifactParams{
		Key: *backup.RemoteKey, FilePath: backup.FilePath,
	}).Return(nil)
	s.env.OnActivity("GetTenantDatabases", mock.Anything, tenantID).Return([]string{"odoo_acme"}, nil)
	s.env.OnActivity("RestoreDatabase", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(RestoreBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RestoreBackupWorkflowTestSuite) TestArtifactGoneEverywhere() {
	backupID := "test-backup-3"
	backup := model.Backup{
		ID:       backupID,
		Type:     model.BackupTypeDatabase,
		Name:     "platform_database_20260830_120000",
		FilePath: "/var/backups/orchard/platform_database_20260830_120000.sql.gz",
		Status:   model.BackupStatusCompleted,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("ArtifactExists", mock.Anything, backup.FilePath).Return(false, nil)

	s.env.ExecuteWorkflow(RestoreBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *RestoreBackupWorkflowTestSuite) TestRejectsIncompleteBackup() {
	backupID := "test-backup-4"
	backup := model.Backup{
		ID:     backupID,
		Type:   model.BackupTypeDatabase,
		Name:   "platform_database_20260830_120000",
		Status: model.BackupStatusPending,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)

	s.env.ExecuteWorkflow(RestoreBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *RestoreBackupWorkflowTestSuite) TestSuccess_Files() {
	backupID := "test-backup-5"
	tenantID := "test-tenant-1"
	backup := model.Backup{
		ID:       backupID,
		TenantID: &tenantID,
		Type:     model.BackupTypeFiles,
		Name:     "acme_files_20260830_120000",
		FilePath: "/var/backups/orchard/acme_files_20260830_120000.tar.gz",
		Status:   model.BackupStatusCompleted,
	}
	tenant := model.Tenant{ID: tenantID, Subdomain: "acme"}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("ArtifactExists", mock.Anything, backup.FilePath).Return(true, nil)
	s.env.OnActivity("GetTenantByID", mock.Anything, tenantID).Return(&tenant, nil)
	s.env.OnActivity("ExtractFiles", mock.Anything, activity.ExtractFilesParams{
		ArchivePath: backup.FilePath, Subdomain: "acme",
	}).Return(nil)

	s.env.ExecuteWorkflow(RestoreBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// ---------- DeleteBackupWorkflow ----------

type DeleteBackupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *DeleteBackupWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *DeleteBackupWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *DeleteBackupWorkflowTestSuite) TestSuccess() {
	backupID := "test-backup-1"
	backup := model.Backup{
		ID:        backupID,
		Type:      model.BackupTypeDatabase,
		Name:      "acme_database_20260830_120000",
		FilePath:  "/var/backups/orchard/acme_database_20260830_120000.sql.gz",
		RemoteKey: strPtr("backups/acme_database_20260830_120000.sql.gz"),
		Status:    model.BackupStatusCompleted,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("RemoveArtifact", mock.Anything, backup.FilePath).Return(nil)
	s.env.OnActivity("DeleteObject", mock.Anything, *backup.RemoteKey).Return(nil)
	s.env.OnActivity("DeleteBackupRecord", mock.Anything, backupID).Return(nil)

	s.env.ExecuteWorkflow(DeleteBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *DeleteBackupWorkflowTestSuite) TestArtifactFailuresStillRemoveRecord() {
	backupID := "test-backup-2"
	backup := model.Backup{
		ID:        backupID,
		Type:      model.BackupTypeFiles,
		Name:      "acme_files_20260830_120000",
		FilePath:  "/var/backups/orchard/acme_files_20260830_120000.tar.gz",
		RemoteKey: strPtr("backups/acme_files_20260830_120000.tar.gz"),
		Status:    model.BackupStatusCompleted,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("RemoveArtifact", mock.Anything, backup.FilePath).Return(fmt.Errorf("permission denied"))
	s.env.OnActivity("DeleteObject", mock.Anything, *backup.RemoteKey).Return(fmt.Errorf("bucket unreachable"))
	s.env.OnActivity("DeleteBackupRecord", mock.Anything, backupID).Return(nil)

	s.env.ExecuteWorkflow(DeleteBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *DeleteBackupWorkflowTestSuite) TestNoArtifacts() {
	backupID := "test-backup-3"
	backup := model.Backup{
		ID:     backupID,
		Type:   model.BackupTypeDatabase,
		Name:   "acme_database_20260830_120000",
		Status: model.BackupStatusFailed,
	}

	s.env.OnActivity("GetBackupByID", mock.Anything, backupID).Return(&backup, nil)
	s.env.OnActivity("DeleteBackupRecord", mock.Anything, backupID).Return(nil)

	s.env.ExecuteWorkflow(DeleteBackupWorkflow, backupID)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// ---------- CleanupBackupsWorkflow ----------

type CleanupBackupsWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *CleanupBackupsWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *CleanupBackupsWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *CleanupBackupsWorkflowTestSuite) TestSweepContinuesPastFailures() {
	s.env.OnActivity("ListExpiredBackups", mock.Anything, 30).Return([]model.Backup{
		{ID: "backup-1"}, {ID: "backup-2"},
	}, nil)
	s.env.OnWorkflow(DeleteBackupWorkflow, mock.Anything, "backup-1").Return(fmt.Errorf("delete failed"))
	s.env.OnWorkflow(DeleteBackupWorkflow, mock.Anything, "backup-2").Return(nil)

	s.env.ExecuteWorkflow(CleanupBackupsWorkflow, 30)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CleanupBackupsWorkflowTestSuite) TestNothingExpired() {
	s.env.OnActivity("ListExpiredBackups", mock.Anything, 7).Return([]model.Backup{}, nil)

	s.env.ExecuteWorkflow(CleanupBackupsWorkflow, 7)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// ---------- ScheduledBackupWorkflow ----------

type ScheduledBackupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ScheduledBackupWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *ScheduledBackupWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *ScheduledBackupWorkflowTestSuite) TestBacksUpActiveTenantsThenSweeps() {
	t1, t2 := "tenant-1", "tenant-2"

	s.env.OnActivity("ListActiveTenantIDs", mock.Anything).Return([]string{t1, t2}, nil)
	s.env.OnActivity("CreateBackupRecord", mock.Anything, activity.CreateBackupRecordParams{
		TenantID: &t1, Type: model.BackupTypeDatabase,
	}).Return(&model.Backup{ID: "backup-1", TenantID: &t1}, nil)
	s.env.OnActivity("CreateBackupRecord", mock.Anything, activity.CreateBackupRecordParams{
		TenantID: &t2, Type: model.BackupTypeDatabase,
	}).Return(&model.Backup{ID: "backup-2", TenantID: &t2}, nil)
	s.env.OnWorkflow(CreateBackupWorkflow, mock.Anything, "backup-1").Return(nil)
	s.env.OnWorkflow(CreateBackupWorkflow, mock.Anything, "backup-2").Return(nil)
	s.env.OnWorkflow(CleanupBackupsWorkflow, mock.Anything, 30).Return(nil)

	s.env.ExecuteWorkflow(ScheduledBackupWorkflow, ScheduledBackupParams{
		Type:          model.BackupTypeDatabase,
		RetentionDays: 30,
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ScheduledBackupWorkflowTestSuite) TestContinuesPastTenantFailure() {
	t1, t2 := "tenant-1", "tenant-2"

	s.env.OnActivity("ListActiveTenantIDs", mock.Anything).Return([]string{t1, t2}, nil)
	s.env.OnActivity("CreateBackupRecord", mock.Anything, activity.CreateBackupRecordParams{
		TenantID: &t1, Type: model.BackupTypeDatabase,
	}).Return(nil, fmt.Errorf("db error"))
	s.env.OnActivity("CreateBackupRecord", mock.Anything, activity.CreateBackupRecordParams{
		TenantID: &t2, Type: model.BackupTypeDatabase,
	}).Return(&model.Backup{ID: "backup-2", TenantID: &t2}, nil)
	s.env.OnWorkflow(CreateBackupWorkflow, mock.Anything, "backup-2").Return(nil)

	s.env.ExecuteWorkflow(ScheduledBackupWorkflow, ScheduledBackupParams{
		Type: model.BackupTypeDatabase,
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// ---------- Run all suites ----------

func TestCreateBackupWorkflow(t *testing.T) {
	suite.Run(t, new(CreateBackupWorkflowTestSuite))
}

func TestRestoreBackupWorkflow(t *testing.T) {
	suite.Run(t, new(RestoreBackupWorkflowTestSuite))
}

func TestDeleteBackupWorkflow(t *testing.T) {
	suite.Run(t, new(DeleteBackupWorkflowTestSuite))
}

func TestCleanupBackupsWorkflow(t *testing.T) {
	suite.Run(t, new(CleanupBackupsWorkflowTestSuite))
}

func TestScheduledBackupWorkflow(t *testing.T) {
	suite.Run(t, new(ScheduledBackupWorkflowTestSuite))
}
