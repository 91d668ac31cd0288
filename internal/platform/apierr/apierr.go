package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and machine code a handler should respond with.
// UserMessage, when set, is safe to show to registrants verbatim.
type Error struct {
	Status      int
	Code        string
	UserMessage string
	Details     []string
	Err         error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// WithUserMessage returns a copy of e carrying a registrant-facing message.
func (e *Error) WithUserMessage(msg string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.UserMessage = msg
	return &cp
}

// WithDetails returns a copy of e carrying itemised reasons.
func (e *Error) WithDetails(details []string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = append([]string(nil), details...)
	return &cp
}

// As extracts an *Error from err. Unknown errors map to 500/internal_error.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Err: err}
}
