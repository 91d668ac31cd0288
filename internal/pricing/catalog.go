package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Option string

const (
	OptionFull   Option = "full"
	OptionSingle Option = "single"
	OptionOneDay Option = "1day"
	OptionTwoDay Option = "2day"
)

// NationalChampCampID is the event that sells individual days.
const NationalChampCampID = 2

var nationalChampCampDates = []string{"June 5", "June 6", "June 7"}

var (
	ErrUnknownEvent    = errors.New("unknown event")
	ErrTierUnavailable = errors.New("price tier unavailable")
)

// EventPricing holds the price tiers for one event in cents.
// OneDay and TwoDay are zero when the event does not sell them.
type EventPricing struct {
	EventID    int      `json:"eventId" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Full       int64    `json:"full" yaml:"full"`
	Single     int64    `json:"single" yaml:"single"`
	OneDay     int64    `json:"1day,omitempty" yaml:"one_day"`
	TwoDay     int64    `json:"2day,omitempty" yaml:"two_day"`
	Flexible   bool     `json:"flexible,omitempty" yaml:"flexible"`
	ValidDates []string `json:"validDates,omitempty" yaml:"dates"`
}

func (p EventPricing) tier(opt Option) (int64, bool) {
	switch opt {
	case OptionOneDay:
		return p.OneDay, p.OneDay > 0
	case OptionTwoDay:
		return p.TwoDay, p.TwoDay > 0
	case OptionSingle:
		return p.Single, true
	default:
		return p.Full, true
	}
}

func (p EventPricing) clone() EventPricing {
	p.ValidDates = append([]string(nil), p.ValidDates...)
	return p
}

// Catalog is an immutable event -> pricing table.
type Catalog struct {
	events map[int]EventPricing
}

func defaultEvents() []EventPricing {
	return []EventPricing{
		{EventID: 1, Name: "Summer Skills Camp", Full: 24900, Single: 14900},
		{
			EventID:    NationalChampCampID,
			Name:       "National Champ Camp",
			Full:       29900,
			Single:     17900,
			OneDay:     11900,
			TwoDay:     19900,
			Flexible:   true,
			ValidDates: nationalChampCampDates,
		},
		{EventID: 3, Name: "Technique Clinic", Full: 7500, Single: 7500},
		{EventID: 4, Name: "Team Camp", Full: 39900, Single: 24900},
	}
}

var defaultCatalog = mustCatalog(defaultEvents())

// Default returns the compiled-in catalog.
func Default() *Catalog { return defaultCatalog }

func mustCatalog(events []EventPricing) *Catalog {
	c, err := NewCatalog(events)
	if err != nil {
		panic(err)
	}
	return c
}

func NewCatalog(events []EventPricing) (*Catalog, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("pricing catalog: no events")
	}
	m := make(map[int]EventPricing, len(events))
	for _, ev := range events {
		ev.Name = strings.TrimSpace(ev.Name)
		if ev.EventID <= 0 {
			return nil, fmt.Errorf("pricing catalog: invalid event id %d", ev.EventID)
		}
		if _, dup := m[ev.EventID]; dup {
			return nil, fmt.Errorf("pricing catalog: duplicate event id %d", ev.EventID)
		}
		if ev.Full <= 0 || ev.Single <= 0 {
			return nil, fmt.Errorf("pricing catalog: event %d needs positive full and single prices", ev.EventID)
		}
		if ev.OneDay < 0 || ev.TwoDay < 0 {
			return nil, fmt.Errorf("pricing catalog: event %d has a negative day price", ev.EventID)
		}
		if ev.Flexible && len(ev.ValidDates) == 0 {
			return nil, fmt.Errorf("pricing catalog: flexible event %d lists no dates", ev.EventID)
		}
		m[ev.EventID] = ev.clone()
	}
	return &Catalog{events: m}, nil
}

// GetEventPricing returns the pricing entry for eventID; ok is false for unknown events.
func (c *Catalog) GetEventPricing(eventID int) (EventPricing, bool) {
	p, ok := c.events[eventID]
	if !ok {
		return EventPricing{}, false
	}
	return p.clone(), true
}

// Events lists every entry ordered by event id.
func (c *Catalog) Events() []EventPricing {
	out := make([]EventPricing, 0, len(c.events))
	for _, p := range c.events {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

func GetEventPricing(eventID int) (EventPricing, bool) {
	return defaultCatalog.GetEventPricing(eventID)
}

func normalizeOption(raw string) Option {
	return Option(strings.ToLower(strings.TrimSpace(raw)))
}
