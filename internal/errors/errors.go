// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTemplateDisabled    = errors.New("template is disabled")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrEmptyMessage        = errors.New("select an enabled template or enter a message")
	ErrEmptyRecipients     = errors.New("no recipients resolved")
	ErrRegionRequired      = errors.New("region must be selected for regional broadcasts")
	ErrScheduleTooSoon     = errors.New("scheduled time must be at least one minute in the future")
	ErrInvalidRecurrence   = errors.New("invalid recurrence")
	ErrNotCancellable      = errors.New("only scheduled messages can be cancelled")
	ErrScheduleNotFound    = errors.New("scheduled message not found")
	ErrRecordNotSelectable = errors.New("only failed records can be selected for resend")
	ErrNothingSelected     = errors.New("no records selected")
	ErrStatsNotLoaded      = errors.New("recipient statistics not loaded")
	ErrBusy                = errors.New("another operation is in progress")
	ErrInvalidTransition   = errors.New("invalid state transition")

	// ErrRateLimited marks a history read rejected by the remote rate limiter.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError is raised before any remote call is attempted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidation(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// RemoteError carries a rejection from the remote admin API verbatim.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// rateLimitMarker is the substring the remote service puts in throttled responses.
const rateLimitMarker = "too many requests"

// Is lets errors.Is(err, ErrRateLimited) match remote throttling responses.
func (e *RemoteError) Is(target error) bool {
	if target != ErrRateLimited {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(e.Message), rateLimitMarker)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsRemote(err error) bool {
	var r *RemoteError
	return errors.As(err, &r)
}
