package checkout

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/pkg/errors"
)

const minPhoneDigits = 10

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// IsValidPhone accepts an optional leading '+', the separators space - . ( ) and at least ten digits
func IsValidPhone(phone string) bool {
	s := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	digits := phoneSeparators.Replace(s)
	if len(digits) < minPhoneDigits {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func courierPhone(fl validator.FieldLevel) bool {
	return IsValidPhone(fl.Field().String())
}

// Validator checks an order draft field by field and stops at the first failure
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator with the courier_phone rule registered
func NewValidator() *Validator {
	v := validator.New()
	// registration only fails for an empty tag or a nil func
	_ = v.RegisterValidation("courier_phone", courierPhone)
	return &Validator{v: v}
}

type fieldCheck struct {
	field   string
	value   interface{}
	tag     string
	message string
}

// Validate returns the first failing field in form order, or nil
func (val *Validator) Validate(draft domain.OrderDraft) *errors.ErrValidation {
	checks := []fieldCheck{
		{"sender_name", strings.TrimSpace(draft.Sender.Name), "required", "Please enter the sender's name."},
		{"sender_phone", strings.TrimSpace(draft.Sender.Phone), "required", "Please enter the sender's phone number."},
		{"sender_phone", draft.Sender.Phone, "courier_phone", "Please enter a valid sender phone number (at least 10 digits)."},
		{"pickup_address", strings.TrimSpace(draft.PickupAddress.Text), "required", "Please enter the pickup address."},
		{"pickup_address", draft.PickupAddress.Resolved, "required", "Please select the pickup address from the suggestions."},
		{"receiver_name", strings.TrimSpace(draft.Receiver.Name), "required", "Please enter the receiver's name."},
		{"receiver_phone", strings.TrimSpace(draft.Receiver.Phone), "required", "Please enter the receiver's phone number."},
		{"receiver_phone", draft.Receiver.Phone, "courier_phone", "Please enter a valid receiver phone number (at least 10 digits)."},
		{"dropoff_address", strings.TrimSpace(draft.DropoffAddress.Text), "required", "Please enter the drop-off address."},
		{"dropoff_address", draft.DropoffAddress.Resolved, "required", "Please select the drop-off address from the suggestions."},
		{"terms_accepted", draft.Consents.TermsAccepted, "required", "Please accept the terms of service."},
		{"value_confirmed", draft.Consents.ValueConfirmed, "required", "Please confirm the declared value of your package."},
		{"distance", !draft.Quote.Pending, "required", "We're still calculating the delivery distance. Please wait a moment."},
	}

	for _, c := range checks {
		if err := val.v.Var(c.value, c.tag); err != nil {
			return &errors.ErrValidation{Field: c.field, Message: c.message}
		}
	}
	return nil
}
