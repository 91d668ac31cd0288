package payments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type RegistrationRepo interface {
	Create(dbc dbctx.Context, reg *types.Registration) error
	UpsertByPaymentIntent(dbc dbctx.Context, reg *types.Registration) (*types.Registration, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Registration, error)
	GetByPaymentIntentID(dbc dbctx.Context, paymentIntentID string) (*types.Registration, error)
	MarkPaymentFailed(dbc dbctx.Context, paymentIntentID string) (bool, error)
	MarkOrderPending(dbc dbctx.Context, id uuid.UUID) (bool, error)
	ClaimOrderSync(dbc dbctx.Context, id uuid.UUID, staleBefore time.Time) (bool, error)
	MarkOrderCreated(dbc dbctx.Context, id uuid.UUID, orderID, orderName string, at time.Time) error
	MarkOrderFailed(dbc dbctx.Context, id uuid.UUID, reason string) error
	ListNeedingOrder(dbc dbctx.Context, staleBefore time.Time, limit int) ([]*types.Registration, error)
}

type registrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegistrationRepo(db *gorm.DB, baseLog *logger.Logger) RegistrationRepo {
	return &registrationRepo{
		db:  db,
		log: baseLog.With("repo", "RegistrationRepo"),
	}
}

// columns the payment processor is authoritative for.
var paymentColumns = []string{
	"event_id", "event_name", "registration_option", "number_of_days", "selected_dates",
	"first_name", "last_name", "email", "phone", "school", "grade", "weight_class",
	"parent_name", "parent_phone", "session_id",
	"amount", "currency", "payment_status", "paid_at", "metadata", "updated_at",
}

func (r *registrationRepo) Create(dbc dbctx.Context, reg *types.Registration) error {
	if reg == nil {
		return nil
	}
	return mapError(dbc.Conn(r.db).Create(reg).Error)
}

// UpsertByPaymentIntent inserts reg or overwrites the payment columns of the
// row that already holds its payment intent id. Order columns are untouched.
func (r *registrationRepo) UpsertByPaymentIntent(dbc dbctx.Context, reg *types.Registration) (*types.Registration, error) {
	if reg == nil || reg.PaymentIntentID == "" {
		return nil, gorm.ErrMissingWhereClause
	}
	err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoUpdates: clause.AssignmentColumns(paymentColumns),
		}).
		Create(reg).Error
	if err != nil {
		return nil, mapError(err)
	}
	return r.GetByPaymentIntentID(dbc, reg.PaymentIntentID)
}

func (r *registrationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Registration, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var reg types.Registration
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&reg).Error; err != nil {
		return nil, err
	}
	if reg.ID == uuid.Nil {
		return nil, nil
	}
	return &reg, nil
}

func (r *registrationRepo) GetByPaymentIntentID(dbc dbctx.Context, paymentIntentID string) (*types.Registration, error) {
	if paymentIntentID == "" {
		return nil, nil
	}
	var reg types.Registration
	if err := dbc.Conn(r.db).Where("payment_intent_id = ?", paymentIntentID).Limit(1).Find(&reg).Error; err != nil {
		return nil, err
	}
	if reg.ID == uuid.Nil {
		return nil, nil
	}
	return &reg, nil
}

// MarkPaymentFailed never downgrades a paid registration.
func (r *registrationRepo) MarkPaymentFailed(dbc dbctx.Context, paymentIntentID string) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.Registration{}).
		Where("payment_intent_id = ? AND payment_status <> ?", paymentIntentID, types.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": types.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *registrationRepo) MarkOrderPending(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.Registration{}).
		Where("id = ? AND order_status IN ?", id, []string{types.OrderStatusNone, types.OrderStatusFailed}).
		Updates(map[string]interface{}{
			"order_status": types.OrderStatusPending,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// ClaimOrderSync moves a paid registration into "creating" so that only one
// caller talks to the order API at a time. A claim older than staleBefore can be taken over.
func (r *registrationRepo) ClaimOrderSync(dbc dbctx.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.Registration{}).
		Where("id = ? AND payment_status = ?", id, types.PaymentStatusPaid).
		Where(
			"order_status IN ? OR (order_status = ? AND updated_at < ?)",
			[]string{types.OrderStatusNone, types.OrderStatusPending, types.OrderStatusFailed},
			types.OrderStatusCreating, staleBefore,
		).
		Updates(map[string]interface{}{
			"order_status":   types.OrderStatusCreating,
			"order_attempts": gorm.Expr("order_attempts + 1"),
			"updated_at":     time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *registrationRepo) MarkOrderCreated(dbc dbctx.Context, id uuid.UUID, orderID, orderName string, at time.Time) error {
	return dbc.Conn(r.db).Model(&types.Registration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_status":       types.OrderStatusCreated,
			"shopify_order_id":   orderID,
			"shopify_order_name": orderName,
			"order_created_at":   at,
			"last_order_error":   "",
			"updated_at":         time.Now(),
		}).Error
}

func (r *registrationRepo) MarkOrderFailed(dbc dbctx.Context, id uuid.UUID, reason string) error {
	if len(reason) > 2000 {
		reason = reason[:2000]
	}
	return dbc.Conn(r.db).Model(&types.Registration{}).
		Where("id = ? AND order_status <> ?", id, types.OrderStatusCreated).
		Updates(map[string]interface{}{
			"order_status":     types.OrderStatusFailed,
			"last_order_error": reason,
			"updated_at":       time.Now(),
		}).Error
}

// ListNeedingOrder returns paid registrations without an order: never
// dispatched, failed, or dispatched before staleBefore and still unfinished.
func (r *registrationRepo) ListNeedingOrder(dbc dbctx.Context, staleBefore time.Time, limit int) ([]*types.Registration, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Registration
	err := dbc.Conn(r.db).
		Where("payment_status = ?", types.PaymentStatusPaid).
		Where(
			"order_status IN ? OR (order_status IN ? AND updated_at < ?)",
			[]string{types.OrderStatusNone, types.OrderStatusFailed},
			[]string{types.OrderStatusPending, types.OrderStatusCreating}, staleBefore,
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
