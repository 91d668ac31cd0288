package services

import (
	"context"

	"github.com/google/uuid"
)

// OrderDispatcher hands a paid registration to whatever creates its order.
type OrderDispatcher interface {
	Dispatch(ctx context.Context, registrationID uuid.UUID) error
}

type inlineDispatcher struct {
	sync OrderSyncService
}

// NewInlineDispatcher runs the order sync on the caller's goroutine.
func NewInlineDispatcher(sync OrderSyncService) OrderDispatcher {
	return &inlineDispatcher{sync: sync}
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, registrationID uuid.UUID) error {
	_, err := d.sync.Sync(ctx, registrationID)
	return err
}
