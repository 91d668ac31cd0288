package registrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order lifecycle: none -> pending (dispatched) -> creating (claimed by a sync) -> created | failed.
const (
	OrderStatusNone     = "none"
	OrderStatusPending  = "pending"
	OrderStatusCreating = "creating"
	OrderStatusCreated  = "created"
	OrderStatusFailed   = "failed"
)

type Registration struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          int            `gorm:"column:event_id;not null;index" json:"event_id"`
	EventName        string         `gorm:"column:event_name" json:"event_name,omitempty"`
	Option           string         `gorm:"column:registration_option;not null" json:"option"`
	NumberOfDays     int            `gorm:"column:number_of_days;not null;default:0" json:"number_of_days,omitempty"`
	SelectedDates    datatypes.JSON `gorm:"column:selected_dates" json:"selected_dates,omitempty"`
	FirstName        string         `gorm:"column:first_name" json:"first_name"`
	LastName         string         `gorm:"column:last_name" json:"last_name"`
	Email            string         `gorm:"column:email;index" json:"email"`
	Phone            string         `gorm:"column:phone" json:"phone,omitempty"`
	School           string         `gorm:"column:school" json:"school,omitempty"`
	Grade            string         `gorm:"column:grade" json:"grade,omitempty"`
	WeightClass      string         `gorm:"column:weight_class" json:"weight_class,omitempty"`
	ParentName       string         `gorm:"column:parent_name" json:"parent_name,omitempty"`
	ParentPhone      string         `gorm:"column:parent_phone" json:"parent_phone,omitempty"`
	SessionID        string         `gorm:"column:session_id;index" json:"session_id,omitempty"`
	PaymentIntentID  string         `gorm:"column:payment_intent_id;not null;uniqueIndex" json:"payment_intent_id"`
	Amount           int64          `gorm:"column:amount;not null" json:"amount"`
	Currency         string         `gorm:"column:currency;not null" json:"currency"`
	PaymentStatus    string         `gorm:"column:payment_status;not null;index" json:"payment_status"`
	OrderStatus      string         `gorm:"column:order_status;not null;index" json:"order_status"`
	ShopifyOrderID   string         `gorm:"column:shopify_order_id" json:"shopify_order_id,omitempty"`
	ShopifyOrderName string         `gorm:"column:shopify_order_name" json:"shopify_order_name,omitempty"`
	OrderAttempts    int            `gorm:"column:order_attempts;not null;default:0" json:"order_attempts"`
	LastOrderError   string         `gorm:"column:last_order_error" json:"last_order_error,omitempty"`
	PaidAt           *time.Time     `gorm:"column:paid_at" json:"paid_at,omitempty"`
	OrderCreatedAt   *time.Time     `gorm:"column:order_created_at" json:"order_created_at,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Registration) TableName() string { return "registration" }

func (r *Registration) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = PaymentStatusPending
	}
	if r.OrderStatus == "" {
		r.OrderStatus = OrderStatusNone
	}
	return nil
}

func (r *Registration) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	default:
		return r.FirstName + " " + r.LastName
	}
}
