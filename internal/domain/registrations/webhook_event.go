package registrations

import "time"

const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
	WebhookStatusIgnored   = "ignored"
)

// WebhookEvent is the inbox row for one processor event id.
type WebhookEvent struct {
	ID              string     `gorm:"column:id;primaryKey" json:"id"`
	Provider        string     `gorm:"column:provider;not null;index" json:"provider"`
	Type            string     `gorm:"column:type;not null;index" json:"type"`
	Status          string     `gorm:"column:status;not null;index" json:"status"`
	Attempts        int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError       string     `gorm:"column:last_error" json:"last_error,omitempty"`
	PaymentIntentID string     `gorm:"column:payment_intent_id;index" json:"payment_intent_id,omitempty"`
	ReceivedAt      time.Time  `gorm:"column:received_at;not null" json:"received_at"`
	ProcessedAt     *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }

// Done reports whether the event needs no further handling.
func (e *WebhookEvent) Done() bool {
	return e != nil && (e.Status == WebhookStatusProcessed || e.Status == WebhookStatusIgnored)
}
