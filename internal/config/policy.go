package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackupPolicy drives the scheduled backup cron workflow and retention
// cleanup. Loaded from a YAML file referenced by BACKUP_POLICY_FILE.
type BackupPolicy struct {
	// Schedule is a cron expression, e.g. "0 3 * * *".
	Schedule      string `yaml:"schedule"`
	Type          string `yaml:"type"`
	RetentionDays int    `yaml:"retention_days"`
}

// DefaultBackupPolicy is used when no policy file is configured.
func DefaultBackupPolicy() BackupPolicy {
	return BackupPolicy{
		Schedule:      "0 3 * * *",
		Type:          "database",
		RetentionDays: 30,
	}
}

// LoadBackupPolicy reads and validates the backup policy file. An empty
// path yields the default policy.
func LoadBackupPolicy(path string) (BackupPolicy, error) {
	if path == "" {
		return DefaultBackupPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return BackupPolicy{}, fmt.Errorf("read backup policy: %w", err)
	}

	policy := DefaultBackupPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return BackupPolicy{}, fmt.Errorf("parse backup policy: %w", err)
	}

	if policy.Type != "database" && policy.Type != "files" {
		return BackupPolicy{}, fmt.Errorf("backup policy: unknown type %q", policy.Type)
	}
	if policy.RetentionDays < 0 {
		return BackupPolicy{}, fmt.Errorf("backup policy: negative retention_days")
	}
	if policy.Schedule == "" {
		return BackupPolicy{}, fmt.Errorf("backup policy: schedule is required")
	}

	return policy, nil
}
