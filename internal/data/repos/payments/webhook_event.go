package payments

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/platform/dbctx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type WebhookEventRepo interface {
	// Record inserts ev unless its id is already known. inserted is false for redeliveries.
	Record(dbc dbctx.Context, ev *types.WebhookEvent) (inserted bool, err error)
	Get(dbc dbctx.Context, id string) (*types.WebhookEvent, error)
	MarkDone(dbc dbctx.Context, id, status, paymentIntentID string) error
	MarkFailed(dbc dbctx.Context, id, reason string) error
}

type webhookEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWebhookEventRepo(db *gorm.DB, baseLog *logger.Logger) WebhookEventRepo {
	return &webhookEventRepo{
		db:  db,
		log: baseLog.With("repo", "WebhookEventRepo"),
	}
}

func (r *webhookEventRepo) Record(dbc dbctx.Context, ev *types.WebhookEvent) (bool, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	if ev.Status == "" {
		ev.Status = types.WebhookStatusReceived
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *webhookEventRepo) Get(dbc dbctx.Context, id string) (*types.WebhookEvent, error) {
	var ev types.WebhookEvent
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&ev).Error; err != nil {
		return nil, err
	}
	if ev.ID == "" {
		return nil, nil
	}
	return &ev, nil
}

func (r *webhookEventRepo) MarkDone(dbc dbctx.Context, id, status, paymentIntentID string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"attempts":     gorm.Expr("attempts + 1"),
		"last_error":   "",
		"processed_at": now,
		"updated_at":   now,
	}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = paymentIntentID
	}
	return dbc.Conn(r.db).Model(&types.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *webhookEventRepo) MarkFailed(dbc dbctx.Context, id, reason string) error {
	if len(reason) > 2000 {
		reason = reason[:2000]
	}
	return dbc.Conn(r.db).Model(&types.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.WebhookStatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
}
