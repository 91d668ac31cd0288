package services

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/platform/sendgrid"
	"github.com/yungbote/matside-backend/internal/platform/shopify"
)

// RegistrationNotifier tells a registrant their spot is confirmed.
type RegistrationNotifier interface {
	RegistrationConfirmed(ctx context.Context, reg *types.Registration, order *shopify.Order) error
}

type emailNotifier struct {
	log  *logger.Logger
	mail sendgrid.Client
}

// NewEmailNotifier sends confirmations through SendGrid. A nil client yields a no-op notifier.
func NewEmailNotifier(log *logger.Logger, mail sendgrid.Client) RegistrationNotifier {
	return &emailNotifier{log: log.With("service", "RegistrationNotifier"), mail: mail}
}

func (n *emailNotifier) RegistrationConfirmed(ctx context.Context, reg *types.Registration, order *shopify.Order) error {
	if n == nil || n.mail == nil || reg == nil {
		return nil
	}
	if strings.TrimSpace(reg.Email) == "" {
		n.log.Debug("Registration has no email; skipping confirmation", "registration_id", reg.ID)
		return nil
	}
	orderName := ""
	if order != nil {
		orderName = order.Name
	}
	_, err := n.mail.Send(ctx, sendgrid.Message{
		To:       sendgrid.Address{Email: reg.Email, Name: reg.FullName()},
		Subject:  fmt.Sprintf("You're registered: %s", eventTitle(reg)),
		Text:     confirmationText(reg, orderName),
		Category: "registration-confirmation",
		Args: map[string]string{
			"registration_id":   reg.ID.String(),
			"payment_intent_id": reg.PaymentIntentID,
		},
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func eventTitle(reg *types.Registration) string {
	if reg.EventName != "" {
		return reg.EventName
	}
	return fmt.Sprintf("Event %d", reg.EventID)
}

func confirmationText(reg *types.Registration, orderName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", strings.TrimSpace(reg.FirstName))
	fmt.Fprintf(&b, "Your registration for %s is confirmed.\n\n", eventTitle(reg))
	fmt.Fprintf(&b, "Option: %s\n", reg.Option)
	if dates := selectedDates(reg); len(dates) > 0 {
		fmt.Fprintf(&b, "Dates: %s\n", strings.Join(dates, ", "))
	}
	fmt.Fprintf(&b, "Amount paid: $%s %s\n", shopify.FormatPrice(reg.Amount), strings.ToUpper(reg.Currency))
	if orderName != "" {
		fmt.Fprintf(&b, "Order: %s\n", orderName)
	}
	b.WriteString("\nSee you on the mat.\n")
	return b.String()
}
