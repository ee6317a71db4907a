package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// CreateInstanceWorkflow provisions the container for a freshly created
// instance record: data volume, container create, container start. The
// record leaves creating in exactly one direction, running on success or
// error with a reason on failure. Port and name reservations survive
// failure so a retry cannot collide with another instance.
func CreateInstanceWorkflow(ctx workflow.Context, req model.CreateInstanceRequest) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	var instance model.Instance
	err := workflow.ExecuteActivity(dbCtx, "GetInstanceByID", req.InstanceID).Get(ctx, &instance)
	if err != nil {
		_ = setInstanceFailed(dbCtx, req.InstanceID, err)
		return err
	}

	volume := activity.DataVolumeName(instance.ContainerName)
	if err := workflow.ExecuteActivity(rtCtx, "EnsureVolume", volume).Get(ctx, nil); err != nil {
		_ = setInstanceFailed(dbCtx, req.InstanceID, err)
		return err
	}

	var containerID string
	err = workflow.ExecuteActivity(rtCtx, "CreateContainer", activity.CreateContainerParams{
		Instance:      instance,
		AdminPassword: req.AdminPassword,
	}).Get(ctx, &containerID)
	if err != nil {
		_ = setInstanceFailed(dbCtx, req.InstanceID, err)
		return err
	}

	// Persist the handle before starting so a start failure never orphans
	// the container.
	err = workflow.ExecuteActivity(dbCtx, "SetInstanceContainerID", activity.SetInstanceContainerIDParams{
		ID:          req.InstanceID,
		ContainerID: containerID,
	}).Get(ctx, nil)
	if err != nil {
		_ = setInstanceFailed(dbCtx, req.InstanceID, err)
		return err
	}

	if err := workflow.ExecuteActivity(rtCtx, "StartContainer", containerID).Get(ctx, nil); err != nil {
		_ = setInstanceFailed(dbCtx, req.InstanceID, err)
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "SetInstanceStarted", req.InstanceID).Get(ctx, nil)
}

// StartInstanceWorkflow starts a stopped instance's container. The status
// write happens only after the engine confirms; on failure the record is
// left as it was.
func StartInstanceWorkflow(ctx workflow.Context, instanceID string) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	instance, err := getInstance(dbCtx, instanceID)
	if err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(rtCtx, "StartContainer", *instance.ContainerID).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "SetInstanceStarted", instanceID).Get(ctx, nil)
}

// StopInstanceWorkflow stops a running instance's container. Same contract
// as start: confirmed transition or no write at all.
func StopInstanceWorkflow(ctx workflow.Context, instanceID string) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	instance, err := getInstance(dbCtx, instanceID)
	if err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(rtCtx, "StopContainer", *instance.ContainerID).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "SetInstanceStopped", instanceID).Get(ctx, nil)
}

// RestartInstanceWorkflow bounces an instance's container. The record sits
// in updating while the container restarts and settles to running on
// confirmation or error on failure, a vanished container included.
func RestartInstanceWorkflow(ctx workflow.Context, instanceID string) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	instance, err := getInstance(dbCtx, instanceID)
	if err != nil {
		_ = setInstanceFailed(dbCtx, instanceID, err)
		return err
	}

	if err := workflow.ExecuteActivity(rtCtx, "RestartContainer", *instance.ContainerID).Get(ctx, nil); err != nil {
		_ = setInstanceFailed(dbCtx, instanceID, err)
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "SetInstanceStarted", instanceID).Get(ctx, nil)
}

// DeleteInstanceWorkflow tears an instance down: container, data volume,
// then the record itself, releasing the port and name reservations last.
// A container or volume already gone is fine; deletion converges.
func DeleteInstanceWorkflow(ctx workflow.Context, instanceID string) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	var instance model.Instance
	err := workflow.ExecuteActivity(dbCtx, "GetInstanceByID", instanceID).Get(ctx, &instance)
	if err != nil {
		return err
	}

	if instance.ContainerID != nil {
		if err := workflow.ExecuteActivity(rtCtx, "RemoveContainer", *instance.ContainerID).Get(ctx, nil); err != nil {
			_ = setInstanceFailed(dbCtx, instanceID, err)
			return err
		}
	}

	volume := activity.DataVolumeName(instance.ContainerName)
	if err := workflow.ExecuteActivity(rtCtx, "RemoveVolume", volume).Get(ctx, nil); err != nil {
		_ = setInstanceFailed(dbCtx, instanceID, err)
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "DeleteInstanceRecord", instanceID).Get(ctx, nil)
}

// getInstance fetches the instance and guards against a missing container
// handle, which no runtime operation can proceed without.
func getInstance(ctx workflow.Context, instanceID string) (*model.Instance, error) {
	var instance model.Instance
	if err := workflow.ExecuteActivity(ctx, "GetInstanceByID", instanceID).Get(ctx, &instance); err != nil {
		return nil, err
	}
	if instance.ContainerID == nil {
		return nil, errNoContainer(instanceID)
	}
	return &instance, nil
}
