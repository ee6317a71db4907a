package model

// Instance status constants.
const (
	StatusCreating = "creating"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusUpdating = "updating"
	StatusError    = "error"
	StatusDeleting = "deleting"
)

// Backup record status constants.
const (
	BackupStatusPending   = "pending"
	BackupStatusCompleted = "completed"
	BackupStatusFailed    = "failed"
)

// StatusForContainerState maps a runtime-observed container state onto the
// instance status enum. Engine states the platform has no notion of map to
// error rather than being ignored.
func StatusForContainerState(state string) string {
	switch state {
	case "running":
		return StatusRunning
	case "exited", "paused":
		return StatusStopped
	case "restarting":
		return StatusUpdating
	case "created":
		return StatusCreating
	case "dead":
		return StatusError
	default:
		return StatusError
	}
}
