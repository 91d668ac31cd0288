package ordersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

// Dispatcher starts one order_sync workflow per registration. A second
// dispatch while the first is running joins it instead of starting another.
type Dispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Dispatcher{log: log.With("component", "OrderSyncDispatcher"), tc: tc, taskQueue: taskQueue}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, registrationID uuid.UUID) error {
	run, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(registrationID),
		TaskQueue:                d.taskQueue,
		WorkflowExecutionTimeout: 2 * time.Hour,
	}, WorkflowName, Input{RegistrationID: registrationID.String()})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start order sync workflow: %w", err)
	}
	d.log.Debug("Order sync workflow started", "registration_id", registrationID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
