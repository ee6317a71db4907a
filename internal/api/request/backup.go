package request

type CreateBackup struct {
	// TenantID is omitted for platform-wide backups.
	TenantID *string `json:"tenant_id"`
	Type     string  `json:"type" validate:"required,oneof=database files"`
}

type CleanupBackups struct {
	// RetentionDays of 0 sweeps every backup up to now.
	RetentionDays int `json:"retention_days" validate:"min=0"`
}
