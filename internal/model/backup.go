package model

import "time"

// Backup describes one backup attempt. TenantID is nil for platform-wide
// backups. A completed record always carries a local path or a remote key;
// a failed record always carries a status message.
type Backup struct {
	ID            string     `json:"id" db:"id"`
	TenantID      *string    `json:"tenant_id,omitempty" db:"tenant_id"`
	Type          string     `json:"type" db:"type"`
	Name          string     `json:"name" db:"name"`
	FilePath      string     `json:"file_path,omitempty" db:"file_path"`
	SizeBytes     int64      `json:"size_bytes" db:"size_bytes"`
	RemoteKey     *string    `json:"remote_key,omitempty" db:"remote_key"`
	Status        string     `json:"status" db:"status"`
	StatusMessage *string    `json:"status_message,omitempty" db:"status_message"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

const (
	BackupTypeDatabase = "database"
	BackupTypeFiles    = "files"
)
