package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a sender or receiver on a delivery
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// ResolvedAddress is an address as typed by the customer plus what the resolver returned.
// Resolved is true only when the customer picked a suggestion from the resolver.
type ResolvedAddress struct {
	Text             string  `json:"text"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Lat              float64 `json:"lat,omitempty"`
	Lng              float64 `json:"lng,omitempty"`
	Resolved         bool    `json:"resolved"`
}

// Display returns the resolver's formatted address, falling back to the typed text
func (a ResolvedAddress) Display() string {
	if a.FormattedAddress != "" {
		return a.FormattedAddress
	}
	return a.Text
}

// Point returns the resolved coordinate
func (a ResolvedAddress) Point() LatLng {
	return LatLng{Lat: a.Lat, Lng: a.Lng}
}

// Consents are the two checkboxes required before payment
type Consents struct {
	TermsAccepted  bool `json:"terms_accepted"`
	ValueConfirmed bool `json:"value_confirmed"`
}

// OrderDraft is the immutable unit handed to the payment and dispatch pipeline
type OrderDraft struct {
	Sender         Contact         `json:"sender"`
	PickupAddress  ResolvedAddress `json:"pickup_address"`
	Receiver       Contact         `json:"receiver"`
	DropoffAddress ResolvedAddress `json:"dropoff_address"`
	Notes          string          `json:"notes,omitempty"`
	WeightKg       float64         `json:"weight_kg,omitempty"`
	CityID         string          `json:"city_id"`
	Consents       Consents        `json:"consents"`
	Quote          FeeQuote        `json:"quote"`
}

// PaymentMode selects the payment widget environment
type PaymentMode string

const (
	PaymentModeTest PaymentMode = "test"
	PaymentModeLive PaymentMode = "live"
)

// PaymentSession authorizes one checkout attempt with the payment widget
type PaymentSession struct {
	SessionToken string      `json:"sessionToken"`
	Mode         PaymentMode `json:"mode"`
}

// DispatchResult is the dispatch endpoint's response body
type DispatchResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Confirmation is shown to the customer after a successful dispatch
type Confirmation struct {
	Reference      string  `json:"reference"`
	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	Total          float64 `json:"total"`
}

// NewConfirmation builds the confirmation reference from the draft's addresses and total
func NewConfirmation(draft OrderDraft) Confirmation {
	total, _ := draft.Quote.TotalAmount()
	return Confirmation{
		Reference:      "EC-" + uuid.NewString()[:8],
		PickupAddress:  draft.PickupAddress.Display(),
		DropoffAddress: draft.DropoffAddress.Display(),
		Total:          Round2(total),
	}
}

// FailedOrderRecord is the durable record of a checkout that could not be completed.
// When PaymentCaptured is true it is the only record of a paid but undispatched order.
type FailedOrderRecord struct {
	Key             string     `json:"key"`
	Draft           OrderDraft `json:"draft"`
	Reason          string     `json:"reason"`
	PaymentCaptured bool       `json:"payment_captured"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SubmissionEvent is an audit entry for one coordinator transition
type SubmissionEvent struct {
	ID           uuid.UUID
	SubmissionID uuid.UUID
	EventType    string
	EventData    map[string]interface{} // JSONB
	CreatedAt    time.Time
}
