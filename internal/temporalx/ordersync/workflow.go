// Package ordersync runs retail order creation as a durable Temporal workflow,
// one execution per paid registration.
package ordersync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	WorkflowName = "order_sync"
	ActivitySync = "order_sync_create"

	ErrTypeInvalid  = "OrderSyncInvalid"
	ErrTypeNotFound = "RegistrationNotFound"
	ErrTypeNotPaid  = "RegistrationNotPaid"
)

type Input struct {
	RegistrationID string `json:"registration_id"`
}

type Result struct {
	RegistrationID string `json:"registration_id"`
	OrderStatus    string `json:"order_status"`
	OrderID        string `json:"order_id,omitempty"`
	OrderName      string `json:"order_name,omitempty"`
	Skipped        bool   `json:"skipped"`
}

// RetryPolicy backs off from 5s to a 5m cap over at most 8 attempts.
func RetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    5 * time.Second,
		BackoffCoefficient: 2,
		MaximumInterval:    5 * time.Minute,
		MaximumAttempts:    8,
	}
}

func WorkflowID(registrationID uuid.UUID) string {
	return "order-sync-" + registrationID.String()
}

func Workflow(ctx workflow.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.RegistrationID) == "" {
		return Result{}, fmt.Errorf("ordersync: missing registration_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         RetryPolicy(),
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivitySync, in.RegistrationID).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Error("Order sync gave up", "registration_id", in.RegistrationID, "error", err)
		return Result{}, err
	}
	return out, nil
}
