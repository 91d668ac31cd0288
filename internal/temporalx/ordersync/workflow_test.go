package ordersync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

type scriptedSync struct {
	calls    int32
	failures int32
	err      error
}

func (s *scriptedSync) Sync(ctx context.Context, id uuid.UUID) (*services.OrderSyncResult, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	if n <= s.failures {
		return nil, errors.New("shopify http 503")
	}
	return &services.OrderSyncResult{RegistrationID: id, OrderStatus: "created", OrderID: "1001", OrderName: "#1001"}, nil
}

func (s *scriptedSync) ReconcileFailed(ctx context.Context, limit int) (*services.ReconcileReport, error) {
	return &services.ReconcileReport{}, nil
}

func run(t *testing.T, sync *scriptedSync, in Input) (*testsuite.TestWorkflowEnvironment, Result) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Sync: sync}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.SyncOrder, activity.RegisterOptions{Name: ActivitySync})
	env.ExecuteWorkflow(Workflow, in)
	require.True(t, env.IsWorkflowCompleted())
	var out Result
	if env.GetWorkflowError() == nil {
		require.NoError(t, env.GetWorkflowResult(&out))
	}
	return env, out
}

func TestWorkflowRetriesTransientFailures(t *testing.T) {
	sync := &scriptedSync{failures: 2}
	id := uuid.New()
	env, out := run(t, sync, Input{RegistrationID: id.String()})

	require.NoError(t, env.GetWorkflowError())
	require.Equal(t, int32(3), atomic.LoadInt32(&sync.calls))
	require.Equal(t, id.String(), out.RegistrationID)
	require.Equal(t, "#1001", out.OrderName)
}

func TestWorkflowStopsOnNonRetryableFailure(t *testing.T) {
	sync := &scriptedSync{err: services.ErrNotPaid}
	env, _ := run(t, sync, Input{RegistrationID: uuid.NewString()})

	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrTypeNotPaid, appErr.Type())
	require.Equal(t, int32(1), atomic.LoadInt32(&sync.calls))
}

func TestWorkflowGivesUpAfterMaxAttempts(t *testing.T) {
	sync := &scriptedSync{failures: 100}
	env, _ := run(t, sync, Input{RegistrationID: uuid.NewString()})

	require.Error(t, env.GetWorkflowError())
	require.Equal(t, RetryPolicy().MaximumAttempts, atomic.LoadInt32(&sync.calls))
}

func TestWorkflowRejectsBadInput(t *testing.T) {
	sync := &scriptedSync{}
	env, _ := run(t, sync, Input{RegistrationID: "not-a-uuid"})

	require.Error(t, env.GetWorkflowError())
	require.Equal(t, int32(0), atomic.LoadInt32(&sync.calls))
}

func TestWorkflowID(t *testing.T) {
	id := uuid.MustParse("7f1d7c6e-8a57-4a8e-9f0e-2b1a0c3d4e5f")
	require.Equal(t, "order-sync-7f1d7c6e-8a57-4a8e-9f0e-2b1a0c3d4e5f", WorkflowID(id))
}
