package domain

// SubmissionState is the checkout coordinator's state
type SubmissionState string

const (
	SubmissionIdle                   SubmissionState = "IDLE"
	SubmissionValidating             SubmissionState = "VALIDATING"
	SubmissionAwaitingPaymentSession SubmissionState = "AWAITING_PAYMENT_SESSION"
	SubmissionAwaitingPaymentWidget  SubmissionState = "AWAITING_PAYMENT_WIDGET"
	SubmissionDispatching            SubmissionState = "DISPATCHING"
	SubmissionSucceeded              SubmissionState = "SUCCEEDED"
	SubmissionFailed                 SubmissionState = "FAILED"
)

// IsTerminal reports whether the state ends a submission
func (s SubmissionState) IsTerminal() bool {
	return s == SubmissionSucceeded || s == SubmissionFailed
}

// CanTransitionTo checks if a state transition is valid
func (s SubmissionState) CanTransitionTo(next SubmissionState) bool {
	switch s {
	case SubmissionIdle:
		return next == SubmissionValidating
	case SubmissionValidating:
		return next == SubmissionAwaitingPaymentSession ||
			next == SubmissionIdle
	case SubmissionAwaitingPaymentSession:
		return next == SubmissionAwaitingPaymentWidget ||
			next == SubmissionFailed
	case SubmissionAwaitingPaymentWidget:
		return next == SubmissionDispatching ||
			next == SubmissionFailed ||
			next == SubmissionIdle // cancelled
	case SubmissionDispatching:
		return next == SubmissionSucceeded ||
			next == SubmissionFailed
	case SubmissionSucceeded, SubmissionFailed:
		return next == SubmissionIdle
	default:
		return false
	}
}

// OutcomeKind tags a SubmissionOutcome
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomePaymentCancelled OutcomeKind = "payment_cancelled"
	OutcomePaymentFailed    OutcomeKind = "payment_failed"
	OutcomeDispatchFailed   OutcomeKind = "dispatch_failed"
	OutcomeValidationFailed OutcomeKind = "validation_failed"
)

// FieldError names the single field that stopped validation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SubmissionOutcome is the result of one Submit call. Message is always set.
type SubmissionOutcome struct {
	Kind         OutcomeKind     `json:"kind"`
	Message      string          `json:"message"`
	Confirmation *Confirmation   `json:"confirmation,omitempty"`
	Dispatch     *DispatchResult `json:"dispatch,omitempty"`
	FieldError   *FieldError     `json:"field_error,omitempty"`
	// RecoveryKey is set when the fallback path persisted the draft
	RecoveryKey string `json:"recovery_key,omitempty"`
	Err         error  `json:"-"`
}

// Succeeded reports whether the order was dispatched
func (o SubmissionOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}
