package model

import "time"

// Instance is one tenant's provisioned, containerized application workload.
// ContainerID stays nil until the runtime has actually created the container;
// Port and ContainerName are reserved by this record from the moment it is
// inserted and are only released when the record is removed.
type Instance struct {
	ID            string     `json:"id" db:"id"`
	TenantID      string     `json:"tenant_id" db:"tenant_id"`
	ContainerID   *string    `json:"container_id,omitempty" db:"container_id"`
	ContainerName string     `json:"container_name" db:"container_name"`
	Version       string     `json:"version" db:"version"`
	Port          int        `json:"port" db:"port"`
	DatabaseName  string     `json:"database_name" db:"database_name"`
	AdminHash     string     `json:"-" db:"admin_hash"`
	CPULimit      float64    `json:"cpu_limit" db:"cpu_limit"`
	MemoryLimitMB int64      `json:"memory_limit_mb" db:"memory_limit_mb"`
	Status        string     `json:"status" db:"status"`
	StatusMessage *string    `json:"status_message,omitempty" db:"status_message"`
	BackupSchedule string    `json:"backup_schedule" db:"backup_schedule"`
	LastBackupAt  *time.Time `json:"last_backup_at,omitempty" db:"last_backup_at"`
	StartedAt     *time.Time `json:"started_at,omitempty" db:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty" db:"stopped_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CanStart reports whether a start operation is valid from the given status.
func CanStart(status string) bool {
	return status == StatusStopped || status == StatusError
}

// CanStop reports whether a stop operation is valid from the given status.
func CanStop(status string) bool {
	return status == StatusRunning
}

// CanRestart reports whether a restart operation is valid from the given status.
func CanRestart(status string) bool {
	return status != StatusDeleting
}

// InstanceStats is a point-in-time resource usage snapshot for a running
// instance, derived from two consecutive cumulative engine samples.
type InstanceStats struct {
	InstanceID     string  `json:"instance_id"`
	ContainerState string  `json:"container_state"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryUsageMB  float64 `json:"memory_usage_mb"`
	MemoryLimitMB  float64 `json:"memory_limit_mb"`
	MemoryPercent  float64 `json:"memory_percent"`
	NetworkRxBytes uint64  `json:"network_rx_bytes"`
	NetworkTxBytes uint64  `json:"network_tx_bytes"`
}
