package ordersync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/services"
)

type Activities struct {
	Log  *logger.Logger
	Sync services.OrderSyncService
}

// SyncOrder wraps OrderSyncService.Sync. Failures that retrying cannot fix are non-retryable.
func (a *Activities) SyncOrder(ctx context.Context, registrationID string) (Result, error) {
	id, err := uuid.Parse(strings.TrimSpace(registrationID))
	if err != nil || id == uuid.Nil {
		return Result{}, temporal.NewNonRetryableApplicationError("invalid registration id", ErrTypeInvalid, err)
	}

	res, err := a.Sync.Sync(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRegistrationNotFound):
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	case errors.Is(err, services.ErrNotPaid):
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotPaid, err)
	default:
		if a.Log != nil {
			a.Log.Warn("Order sync attempt failed", "registration_id", id, "error", err)
		}
		return Result{}, err
	}
	return Result{
		RegistrationID: res.RegistrationID.String(),
		OrderStatus:    res.OrderStatus,
		OrderID:        res.OrderID,
		OrderName:      res.OrderName,
		Skipped:        res.Skipped,
	}, nil
}
