package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	types "github.com/yungbote/matside-backend/internal/domain"
	"github.com/yungbote/matside-backend/internal/pricing"
)

// RegistrationDetails is what a registrant submits at checkout. It travels to
// the payment processor as intent metadata and comes back on the webhook.
type RegistrationDetails struct {
	SessionID     string   `json:"sessionId"`
	EventID       int      `json:"eventId"`
	EventName     string   `json:"eventName,omitempty"`
	Option        string   `json:"option"`
	NumberOfDays  int      `json:"numberOfDays,omitempty"`
	SelectedDates []string `json:"selectedDates,omitempty"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone,omitempty"`
	School        string   `json:"school,omitempty"`
	Grade         string   `json:"grade,omitempty"`
	WeightClass   string   `json:"weightClass,omitempty"`
	ParentName    string   `json:"parentName,omitempty"`
	ParentPhone   string   `json:"parentPhone,omitempty"`
}

const (
	metaSessionID     = "sessionId"
	metaEventID       = "eventId"
	metaEventName     = "eventName"
	metaOption        = "option"
	metaNumberOfDays  = "numberOfDays"
	metaSelectedDates = "selectedDates"
	metaFirstName     = "firstName"
	metaLastName      = "lastName"
	metaEmail         = "email"
	metaPhone         = "phone"
	metaSchool        = "school"
	metaGrade         = "grade"
	metaWeightClass   = "weightClass"
	metaParentName    = "parentName"
	metaParentPhone   = "parentPhone"
)

func (d *RegistrationDetails) normalize() {
	d.SessionID = strings.TrimSpace(d.SessionID)
	d.Option = strings.ToLower(strings.TrimSpace(d.Option))
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	dates := make([]string, 0, len(d.SelectedDates))
	for _, s := range d.SelectedDates {
		if s = strings.TrimSpace(s); s != "" {
			dates = append(dates, s)
		}
	}
	d.SelectedDates = dates
}

func (d RegistrationDetails) PricingRequest() pricing.Request {
	return pricing.Request{
		EventID:       d.EventID,
		Option:        d.Option,
		NumberOfDays:  d.NumberOfDays,
		SelectedDates: d.SelectedDates,
	}
}

// Metadata flattens the details into processor metadata. Empty values are omitted.
func (d RegistrationDetails) Metadata() map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	put(metaSessionID, d.SessionID)
	put(metaEventID, strconv.Itoa(d.EventID))
	put(metaEventName, d.EventName)
	put(metaOption, d.Option)
	if d.NumberOfDays > 0 {
		put(metaNumberOfDays, strconv.Itoa(d.NumberOfDays))
	}
	put(metaSelectedDates, strings.Join(d.SelectedDates, ","))
	put(metaFirstName, d.FirstName)
	put(metaLastName, d.LastName)
	put(metaEmail, d.Email)
	put(metaPhone, d.Phone)
	put(metaSchool, d.School)
	put(metaGrade, d.Grade)
	put(metaWeightClass, d.WeightClass)
	put(metaParentName, d.ParentName)
	put(metaParentPhone, d.ParentPhone)
	return out
}

// DetailsFromMetadata is the inverse of Metadata. Unparseable numbers decode as zero.
func DetailsFromMetadata(m map[string]string) RegistrationDetails {
	d := RegistrationDetails{
		SessionID:   m[metaSessionID],
		EventName:   m[metaEventName],
		Option:      m[metaOption],
		FirstName:   m[metaFirstName],
		LastName:    m[metaLastName],
		Email:       m[metaEmail],
		Phone:       m[metaPhone],
		School:      m[metaSchool],
		Grade:       m[metaGrade],
		WeightClass: m[metaWeightClass],
		ParentName:  m[metaParentName],
		ParentPhone: m[metaParentPhone],
	}
	d.EventID, _ = strconv.Atoi(strings.TrimSpace(m[metaEventID]))
	d.NumberOfDays, _ = strconv.Atoi(strings.TrimSpace(m[metaNumberOfDays]))
	if raw := strings.TrimSpace(m[metaSelectedDates]); raw != "" {
		d.SelectedDates = strings.Split(raw, ",")
	}
	d.normalize()
	return d
}

func (d RegistrationDetails) toRegistration(paymentIntentID string, amount int64, currency string) *types.Registration {
	dates := d.SelectedDates
	if dates == nil {
		dates = []string{}
	}
	rawDates, _ := json.Marshal(dates)
	rawMeta, _ := json.Marshal(d.Metadata())
	return &types.Registration{
		EventID:         d.EventID,
		EventName:       d.EventName,
		Option:          d.Option,
		NumberOfDays:    d.NumberOfDays,
		SelectedDates:   datatypes.JSON(rawDates),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		School:          d.School,
		Grade:           d.Grade,
		WeightClass:     d.WeightClass,
		ParentName:      d.ParentName,
		ParentPhone:     d.ParentPhone,
		SessionID:       d.SessionID,
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Currency:        strings.ToLower(currency),
		Metadata:        datatypes.JSON(rawMeta),
	}
}

func selectedDates(reg *types.Registration) []string {
	var out []string
	if reg == nil || len(reg.SelectedDates) == 0 {
		return nil
	}
	_ = json.Unmarshal(reg.SelectedDates, &out)
	return out
}
