package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// ReconcileInstanceWorkflow converges one instance's persisted status onto
// the container engine's view. The status write is conditional, so running
// reconciliation any number of times against an unchanged container leaves
// the record untouched.
func ReconcileInstanceWorkflow(ctx workflow.Context, instanceID string) error {
	dbCtx := withDefaultActivityOptions(ctx)
	rtCtx := withRuntimeActivityOptions(ctx)

	var instance model.Instance
	if err := workflow.ExecuteActivity(dbCtx, "GetInstanceByID", instanceID).Get(ctx, &instance); err != nil {
		return err
	}
	if instance.ContainerID == nil || instance.Status == model.StatusDeleting {
		return nil
	}

	var observed activity.InspectResult
	if err := workflow.ExecuteActivity(rtCtx, "InspectContainer", *instance.ContainerID).Get(ctx, &observed); err != nil {
		return err
	}

	status := model.StatusError
	var message *string
	if observed.Found {
		status = model.StatusForContainerState(observed.State)
	} else {
		msg := "container missing from runtime"
		message = &msg
	}

	var changed bool
	err := workflow.ExecuteActivity(dbCtx, "ReconcileInstanceStatus", activity.ReconcileInstanceStatusParams{
		ID:            instanceID,
		Status:        status,
		StatusMessage: message,
	}).Get(ctx, &changed)
	if err != nil {
		return err
	}

	if changed {
		workflow.GetLogger(ctx).Info("instance status reconciled",
			"instance_id", instanceID,
			"status", status)
	}
	return nil
}

// ReconcileInstancesWorkflow is the cron sweep over every instance with a
// container handle. Per-instance failures are logged and skipped so one
// bad instance never stalls the rest of the fleet.
func ReconcileInstancesWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := withDefaultActivityOptions(ctx)

	var ids []string
	if err := workflow.ExecuteActivity(dbCtx, "ListInstanceIDs").Get(ctx, &ids); err != nil {
		return err
	}

	var failures int
	for _, id := range ids {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "instance-reconcile-" + id,
		})
		if err := workflow.ExecuteChildWorkflow(childCtx, ReconcileInstanceWorkflow, id).Get(ctx, nil); err != nil {
			logger.Error("instance reconciliation failed", "instance_id", id, "error", err)
			failures++
		}
	}

	logger.Info("reconciliation sweep complete", "instances", len(ids), "failures", failures)
	return nil
}
