package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/matside-backend/internal/domain"
)

// SeedRegistration inserts a registration for paymentIntentID with the given statuses.
func SeedRegistration(tb testing.TB, ctx context.Context, tx *gorm.DB, paymentIntentID, paymentStatus, orderStatus string) *types.Registration {
	tb.Helper()
	now := time.Now()
	reg := &types.Registration{
		ID:              uuid.New(),
		EventID:         1,
		EventName:       "Summer Skills Camp",
		Option:          "full",
		SelectedDates:   datatypes.JSON([]byte("[]")),
		FirstName:       "Dan",
		LastName:        "Gable",
		Email:           "dan@example.com",
		SessionID:       "sess-" + paymentIntentID,
		PaymentIntentID: paymentIntentID,
		Amount:          24900,
		Currency:        "usd",
		PaymentStatus:   paymentStatus,
		OrderStatus:     orderStatus,
		Metadata:        datatypes.JSON([]byte("{}")),
	}
	if paymentStatus == types.PaymentStatusPaid {
		reg.PaidAt = &now
	}
	if err := tx.WithContext(ctx).Create(reg).Error; err != nil {
		tb.Fatalf("seed registration: %v", err)
	}
	return reg
}
