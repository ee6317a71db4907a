package request

type CreateInstance struct {
	Name          string  `json:"name" validate:"required,slug"`
	Version       string  `json:"version"`
	AdminPassword string  `json:"admin_password"`
	DatabaseName  string  `json:"database_name" validate:"omitempty,slug"`
	CPULimit      float64 `json:"cpu_limit" validate:"omitempty,gt=0"`
	MemoryLimitMB int64   `json:"memory_limit_mb" validate:"omitempty,min=256"`
	BackupSchedule string `json:"backup_schedule" validate:"omitempty,oneof=daily weekly monthly"`
}
