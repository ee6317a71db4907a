package core

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/orchardhq/orchard/internal/model"
)

const taskQueue = "orchard-tasks"

// signalLifecycle routes a workflow task through the per-instance entity
// workflow. It uses SignalWithStartWorkflow so that all lifecycle
// operations on one instance execute sequentially, in submission order.
func signalLifecycle(ctx context.Context, tc temporalclient.Client, instanceID string, task model.LifecycleTask) error {
	wfID := fmt.Sprintf("instance-%s", instanceID)
	_, err := tc.SignalWithStartWorkflow(ctx, wfID, model.LifecycleSignalName, task,
		temporalclient.StartWorkflowOptions{
			ID:        wfID,
			TaskQueue: taskQueue,
		},
		"InstanceLifecycleWorkflow",
	)
	return err
}

// startWorkflow directly executes a Temporal workflow without per-instance
// serialization. Used for backup and reconciliation workflows.
func startWorkflow(ctx context.Context, tc temporalclient.Client, workflowName, wfID string, arg any) error {
	_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, arg)
	return err
}
