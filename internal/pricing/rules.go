package pricing

import (
	"fmt"
	"strings"
)

// Validation is the outcome of checking a flexible-day selection.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidationError carries every reason a selection was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Reasons) == 0 {
		return "invalid selection"
	}
	return "invalid selection: " + strings.Join(e.Reasons, "; ")
}

func expectedDays(opt Option) (int, bool) {
	switch opt {
	case OptionOneDay:
		return 1, true
	case OptionTwoDay:
		return 2, true
	default:
		return 0, false
	}
}

// selectionViolations is the single rule set for flexible-day selections.
// Options other than 1day/2day have nothing to check.
func selectionViolations(opt Option, numberOfDays int, selectedDates []string, validDates []string) []string {
	want, flexible := expectedDays(opt)
	if !flexible {
		return nil
	}
	var out []string
	if numberOfDays != want {
		if numberOfDays == 0 {
			out = append(out, fmt.Sprintf("%s option requires numberOfDays = %d", opt, want))
		} else {
			out = append(out, fmt.Sprintf("%s option requires numberOfDays = %d, got %d", opt, want, numberOfDays))
		}
	}
	if len(selectedDates) != want {
		out = append(out, fmt.Sprintf("%s option requires exactly %d selected date(s), got %d", opt, want, len(selectedDates)))
	}

	allowed := make(map[string]struct{}, len(validDates))
	for _, d := range validDates {
		allowed[d] = struct{}{}
	}
	seen := make(map[string]struct{}, len(selectedDates))
	for _, raw := range selectedDates {
		d := strings.TrimSpace(raw)
		if _, ok := allowed[d]; !ok {
			out = append(out, fmt.Sprintf("%q is not a valid date (valid dates: %s)", raw, strings.Join(validDates, ", ")))
			continue
		}
		if _, dup := seen[d]; dup {
			out = append(out, fmt.Sprintf("%q is selected more than once", d))
			continue
		}
		seen[d] = struct{}{}
	}
	return out
}

// ValidateNationalChampCampRegistration checks a flexible-day selection
// against the National Champ Camp dates. It reports problems instead of failing.
func (c *Catalog) ValidateNationalChampCampRegistration(option string, numberOfDays int, selectedDates []string) Validation {
	var dates []string
	if p, ok := c.events[NationalChampCampID]; ok {
		dates = p.ValidDates
	}
	errs := selectionViolations(normalizeOption(option), numberOfDays, selectedDates, dates)
	return Validation{Valid: len(errs) == 0, Errors: nonNil(errs)}
}

func ValidateNationalChampCampRegistration(option string, numberOfDays int, selectedDates []string) Validation {
	return defaultCatalog.ValidateNationalChampCampRegistration(option, numberOfDays, selectedDates)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
