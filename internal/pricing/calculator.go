package pricing

import (
	"errors"
	"fmt"
)

type Request struct {
	EventID       int      `json:"eventId"`
	Option        string   `json:"option"`
	NumberOfDays  int      `json:"numberOfDays,omitempty"`
	SelectedDates []string `json:"selectedDates,omitempty"`
}

// CalculateRegistrationAmount returns the charge in cents.
//
// Flexible events check 1day/2day selections before pricing them. Every other
// combination charges the single tier for "single" and the full tier otherwise.
func (c *Catalog) CalculateRegistrationAmount(req Request) (int64, error) {
	p, ok := c.events[req.EventID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEvent, req.EventID)
	}
	opt := normalizeOption(req.Option)
	if _, dayOption := expectedDays(opt); dayOption && p.Flexible {
		if reasons := selectionViolations(opt, req.NumberOfDays, req.SelectedDates, p.ValidDates); len(reasons) > 0 {
			return 0, &ValidationError{Reasons: reasons}
		}
		amount, ok := p.tier(opt)
		if !ok {
			return 0, fmt.Errorf("%w: event %d has no %s price", ErrTierUnavailable, req.EventID, opt)
		}
		return amount, nil
	}
	if opt == OptionSingle {
		return p.Single, nil
	}
	return p.Full, nil
}

func CalculateRegistrationAmount(req Request) (int64, error) {
	return defaultCatalog.CalculateRegistrationAmount(req)
}

// Quote is the tagged outcome of pricing a request: Amount when Valid, Errors otherwise.
type Quote struct {
	EventID int      `json:"eventId"`
	Option  string   `json:"option"`
	Amount  int64    `json:"amount"`
	Valid   bool     `json:"valid"`
	Errors  []string `json:"errors"`
}

func (c *Catalog) Quote(req Request) Quote {
	q := Quote{EventID: req.EventID, Option: string(normalizeOption(req.Option)), Errors: []string{}}
	amount, err := c.CalculateRegistrationAmount(req)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			q.Errors = append(q.Errors, ve.Reasons...)
		default:
			q.Errors = append(q.Errors, err.Error())
		}
		return q
	}
	q.Amount = amount
	q.Valid = true
	return q
}

func QuoteRegistration(req Request) Quote {
	return defaultCatalog.Quote(req)
}
