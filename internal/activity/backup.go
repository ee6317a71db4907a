package activity

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Artifact extensions by backup type.
const (
	ExtDatabase = ".sql.gz"
	ExtFiles    = ".tar.gz"
)

// Backup contains activities that produce, restore and dispose of backup
// artifacts on local disk.
type Backup struct {
	// dbURL is the connection string of the Postgres server holding the
	// application databases. The database name is swapped per dump.
	dbURL      string
	backupPath string
	dataPath   string
	logger     zerolog.Logger
}

// NewBackup creates a new Backup activity struct.
func NewBackup(dbURL, backupPath, dataPath string, logger zerolog.Logger) *Backup {
	return &Backup{
		dbURL:      dbURL,
		backupPath: backupPath,
		dataPath:   dataPath,
		logger:     logger.With().Str("component", "backup-activity").Logger(),
	}
}

// artifactPath returns the local path a named backup artifact lives at.
func (a *Backup) artifactPath(name, ext string) string {
	return filepath.Join(a.backupPath, name+ext)
}

// dataDir returns the on-disk data directory for a tenant subdomain, or
// the platform-wide data root when subdomain is empty.
func (a *Backup) dataDir(subdomain string) string {
	if subdomain == "" {
		return a.dataPath
	}
	return filepath.Join(a.dataPath, subdomain)
}

// conninfo rebuilds the configured connection URL against a specific
// database name.
func (a *Backup) conninfo(database string) (string, error) {
	u, err := url.Parse(a.dbURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if database != "" {
		u.Path = "/" + database
	}
	return u.String(), nil
}

// DumpDatabaseParams holds the parameters for DumpDatabase.
type DumpDatabaseParams struct {
	// Database is the database to dump; empty means the database named in
	// the connection URL.
	Database     string `json:"database"`
	ArtifactName string `json:"artifact_name"`
}

// DumpDatabase runs pg_dump and compresses the output to a gzipped file
// under the backup directory. Returns the artifact path. Nothing is left
// behind on failure.
func (a *Backup) DumpDatabase(ctx context.Context, params DumpDatabaseParams) (string, error) {
	dumpPath := a.artifactPath(params.ArtifactName, ExtDatabase)
	a.logger.Info().Str("database", params.Database).Str("path", dumpPath).Msg("dumping database")

	if err := os.MkdirAll(filepath.Dir(dumpPath), 0750); err != nil {
		return "", fmt.Errorf("create dump directory: %w", err)
	}

	conninfo, err := a.conninfo(params.Database)
	if err != nil {
		return "", err
	}

	// Build: pg_dump {conninfo} | gzip > {dumpPath}
	shell := fmt.Sprintf("pg_dump %s | gzip > %s", shellQuote(conninfo), shellQuote(dumpPath))
	cmd := exec.CommandContext(ctx, "bash", "-o", "pipefail", "-c", shell)

	if output, err := cmd.CombinedOutput(); err != nil {
		a.removeQuietly(dumpPath)
		return "", fmt.Errorf("pg_dump failed: %s: %w", string(output), err)
	}
	return dumpPath, nil
}

// RestoreDatabaseParams holds the parameters for RestoreDatabase.
type RestoreDatabaseParams struct {
	Database string `json:"database"`
	DumpPath string `json:"dump_path"`
}

// RestoreDatabase replays a gzipped SQL dump into the database.
func (a *Backup) RestoreDatabase(ctx context.Context, params RestoreDatabaseParams) error {
	a.logger.Info().Str("database", params.Database).Str("path", params.DumpPath).Msg("restoring database")

	conninfo, err := a.conninfo(params.Database)
	if err != nil {
		return err
	}

	// Build: gunzip -c {dumpPath} | psql {conninfo}
	shell := fmt.Sprintf("gunzip -c %s | psql -v ON_ERROR_STOP=1 %s", shellQuote(params.DumpPath), shellQuote(conninfo))
	cmd := exec.CommandContext(ctx, "bash", "-o", "pipefail", "-c", shell)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("psql restore failed: %s: %w", string(output), err)
	}
	return nil
}

// ArchiveFilesParams holds the parameters for ArchiveFiles.
type ArchiveFilesParams struct {
	// Subdomain scopes the archive to one tenant's data directory; empty
	// archives the whole data root.
	Subdomain    string `json:"subdomain"`
	ArtifactName string `json:"artifact_name"`
}

// ArchiveFiles packs a data directory into a gzipped tarball under the
// backup directory. Returns the artifact path. Nothing is left behind on
// failure.
func (a *Backup) ArchiveFiles(ctx context.Context, params ArchiveFilesParams) (string, error) {
	sourceDir := a.dataDir(params.Subdomain)
	archivePath := a.artifactPath(params.ArtifactName, ExtFiles)
	a.logger.Info().Str("dir", sourceDir).Str("path", archivePath).Msg("archiving files")

	if _, err := os.Stat(sourceDir); err != nil {
		return "", fmt.Errorf("stat source dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0750); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "tar", "-czf", archivePath, "-C", sourceDir, ".")
	if output, err := cmd.CombinedOutput(); err != nil {
		a.removeQuietly(archivePath)
		return "", fmt.Errorf("tar failed: %s: %w", string(output), err)
	}
	return archivePath, nil
}

// ExtractFilesParams holds the parameters for ExtractFiles.
type ExtractFilesParams struct {
	ArchivePath string `json:"archive_path"`
	Subdomain   string `json:"subdomain"`
}

// ExtractFiles unpacks a gzipped tarball back into the data directory.
func (a *Backup) ExtractFiles(ctx context.Context, params ExtractFilesParams) error {
	targetDir := a.dataDir(params.Subdomain)
	a.logger.Info().Str("path", params.ArchivePath).Str("dir", targetDir).Msg("extracting files")

	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "tar", "-xzf", params.ArchivePath, "-C", targetDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tar extract failed: %s: %w", string(output), err)
	}
	return nil
}

// ArtifactExists reports whether a local artifact is present.
func (a *Backup) ArtifactExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w", err)
}

// ArtifactSize returns the size of a backup artifact in bytes.
func (a *Backup) ArtifactSize(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	return info.Size(), nil
}

// RemoveArtifact deletes a local backup artifact. A missing file is fine.
func (a *Backup) RemoveArtifact(ctx context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

func (a *Backup) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.logger.Warn().Err(err).Str("path", path).Msg("partial artifact cleanup failed")
	}
}

// shellQuote wraps an argument in single quotes for safe shell usage.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
