package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/orchardhq/orchard/internal/activity"
	"github.com/orchardhq/orchard/internal/model"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly by the Temporal test framework. In unit tests, all activities
// are mocked via OnActivity, but the framework still needs the type
// information for proper serialization/deserialization of activity
// parameters and return values.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.CoreDB{})
	env.RegisterActivity(&activity.Runtime{})
	env.RegisterActivity(&activity.Backup{})
	env.RegisterActivity(&activity.Storage{})
}

// matchInstanceFailed returns a mock.MatchedBy matcher for
// SetInstanceStatusParams that checks id, status=error, and that
// StatusMessage is non-nil. The exact message includes Temporal activity
// error wrapping that is not predictable in tests.
func matchInstanceFailed(id string) interface{} {
	return mock.MatchedBy(func(params activity.SetInstanceStatusParams) bool {
		return params.ID == id &&
			params.Status == model.StatusError &&
			params.StatusMessage != nil
	})
}

// matchBackupFailed is the equivalent matcher for SetBackupFailedParams.
func matchBackupFailed(id string) interface{} {
	return mock.MatchedBy(func(params activity.SetBackupFailedParams) bool {
		return params.ID == id && params.Message != ""
	})
}

func strPtr(s string) *string { return &s }
