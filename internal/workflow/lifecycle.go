package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/orchardhq/orchard/internal/model"
)

// InstanceLifecycleWorkflow is a long-running per-instance orchestrator
// that processes lifecycle tasks sequentially. Tasks are submitted via the
// "lifecycle" signal and executed as child workflows one at a time, so
// concurrent operations on the same instance never interleave.
//
// The workflow idles for up to 5 minutes between tasks. If no new task
// arrives within that window, the workflow completes gracefully. A new
// run is automatically started by SignalWithStartWorkflow when the next
// task is enqueued.
//
// After 1000 iterations the workflow uses ContinueAsNew to keep the
// event history bounded. Unread signals are carried over automatically
// by Temporal.
func InstanceLifecycleWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	signalCh := workflow.GetSignalChannel(ctx, model.LifecycleSignalName)

	iteration := 0
	const maxIterations = 1000

	for {
		// Drain any buffered signals first.
		for {
			var task model.LifecycleTask
			if !signalCh.ReceiveAsync(&task) {
				break
			}
			if err := executeLifecycleTask(ctx, task); err != nil {
				logger.Error("lifecycle task failed",
					"workflow", task.WorkflowName,
					"id", task.WorkflowID,
					"error", err)
			}
			iteration++
			if iteration >= maxIterations {
				return workflow.NewContinueAsNewError(ctx, InstanceLifecycleWorkflow)
			}
		}

		// No buffered signals, wait for a new signal or idle timeout.
		var task model.LifecycleTask
		gotSignal := false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(signalCh, func(c workflow.ReceiveChannel, _ bool) {
			c.Receive(ctx, &task)
			gotSignal = true
		})
		selector.AddFuture(workflow.NewTimer(ctx, 5*time.Minute), func(workflow.Future) {})
		selector.Select(ctx)

		if !gotSignal {
			return nil
		}

		if err := executeLifecycleTask(ctx, task); err != nil {
			logger.Error("lifecycle task failed",
				"workflow", task.WorkflowName,
				"id", task.WorkflowID,
				"error", err)
		}
		iteration++
		if iteration >= maxIterations {
			return workflow.NewContinueAsNewError(ctx, InstanceLifecycleWorkflow)
		}
	}
}

func executeLifecycleTask(ctx workflow.Context, task model.LifecycleTask) error {
	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: task.WorkflowID,
		TaskQueue:  "orchard-tasks",
	})
	return workflow.ExecuteChildWorkflow(childCtx, task.WorkflowName, task.Arg).Get(ctx, nil)
}
