package errors

import (
	"fmt"

	"github.com/expresscouriers/checkout/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation is returned for the first checkout field that fails validation.
// The message is meant to be shown to the customer next to Field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	switch {
	case e.Field != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	case e.Message != "":
		return e.Message
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation failed"
	}
}

// ErrTransientNetwork wraps an upstream call that failed after the retry budget was spent
type ErrTransientNetwork struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ErrTransientNetwork) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ErrTransientNetwork) Unwrap() error { return e.Err }

// ErrPaymentWidgetUnavailable is returned when neither widget name registered before the lookup deadline
type ErrPaymentWidgetUnavailable struct {
	Names   []string
	Timeout string
}

func (e *ErrPaymentWidgetUnavailable) Error() string {
	return fmt.Sprintf("payment widget did not register under %v within %s", e.Names, e.Timeout)
}

// ErrDispatchFailed means the payment was captured but the order could not be recorded
type ErrDispatchFailed struct {
	Reason string
	Err    error
}

func (e *ErrDispatchFailed) Error() string {
	if e.Reason != "" {
		return "dispatch failed: " + e.Reason
	}
	return "dispatch failed"
}

func (e *ErrDispatchFailed) Unwrap() error { return e.Err }

// ErrSubmissionInProgress is returned when Submit is called while the coordinator is not idle
type ErrSubmissionInProgress struct {
	State domain.SubmissionState
}

func (e *ErrSubmissionInProgress) Error() string {
	return fmt.Sprintf("submission already in progress (state %s)", e.State)
}

// ErrInvalidStateTransition is returned when an invalid state transition is attempted
type ErrInvalidStateTransition struct {
	From domain.SubmissionState
	To   domain.SubmissionState
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}
