package model

// LifecycleSignalName is the signal name used by the per-instance
// lifecycle workflow.
const LifecycleSignalName = "lifecycle"

// LifecycleTask represents a unit of work to be processed sequentially
// by the per-instance lifecycle workflow.
type LifecycleTask struct {
	WorkflowName string `json:"workflow_name"`
	WorkflowID   string `json:"workflow_id"`
	Arg          any    `json:"arg"`
}

// CreateInstanceRequest is the workflow argument for CreateInstanceWorkflow.
// The plaintext admin credential travels only here, into the container
// environment, and is never persisted.
type CreateInstanceRequest struct {
	InstanceID    string `json:"instance_id"`
	AdminPassword string `json:"admin_password"`
}
