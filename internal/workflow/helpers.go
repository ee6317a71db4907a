package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// errNoContainer is returned by workflows asked to operate on an instance
// whose container was never provisioned. Retrying cannot help.
func errNoContainer(instanceID string) error {
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("instance %s has no container", instanceID), "NoContainer", nil)
}

// withDefaultActivityOptions configures the retry policy used for database
// activities.
func withDefaultActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// withRuntimeActivityOptions configures the retry policy used for container
// engine activities. A longer backoff rides out transient engine outages
// before an operation is declared failed.
func withRuntimeActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    2 * time.Minute,
		ScheduleToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// withBackupActivityOptions configures the retry policy used for dump,
// archive and object storage activities, which can legitimately run long.
func withBackupActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    30 * time.Minute,
		ScheduleToCloseTimeout: 2 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    10 * time.Second,
			MaximumInterval:    2 * time.Minute,
			BackoffCoefficient: 2.0,
		},
	})
}

// setInstanceFailed is a helper to move an instance to error with a reason.
// It returns any error but callers typically ignore it since the primary
// error is more important.
func setInstanceFailed(ctx workflow.Context, id string, err error) error {
	msg := err.Error()
	return workflow.ExecuteActivity(ctx, "SetInstanceStatus", activity.SetInstanceStatusParams{
		ID:            id,
		Status:        model.StatusError,
		StatusMessage: &msg,
	}).Get(ctx, nil)
}

// setBackupFailed is a helper to mark a backup failed with a reason.
func setBackupFailed(ctx workflow.Context, id string, err error) error {
	return workflow.ExecuteActivity(ctx, "SetBackupFailed", activity.SetBackupFailedParams{
		ID:      id,
		Message: err.Error(),
	}).Get(ctx, nil)
}
