package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expresscouriers/checkout/internal/domain"
)

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"4035550100", true},
		{"(403) 555-0100", true},
		{"+1 403.555.0100", true},
		{"+14035550100", true},
		{"403-555-010", false},
		{"", false},
		{"403 555 01OO", false},
		{"1+4035550100", false},
		{"++14035550100", false},
		{"403/555/0100", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPhone(tt.phone))
		})
	}
}

func TestValidator_FailFastOrder(t *testing.T) {
	v := NewValidator()
	require.Nil(t, v.Validate(validDraft()))

	tests := []struct {
		name   string
		mutate func(d *domain.OrderDraft)
		field  string
	}{
		{"everything empty reports sender name", func(d *domain.OrderDraft) { *d = domain.OrderDraft{} }, "sender_name"},
		{"blank sender name", func(d *domain.OrderDraft) { d.Sender.Name = "   " }, "sender_name"},
		{"missing sender phone", func(d *domain.OrderDraft) { d.Sender.Phone = ""; d.Receiver.Name = "" }, "sender_phone"},
		{"short sender phone", func(d *domain.OrderDraft) { d.Sender.Phone = "555 0100" }, "sender_phone"},
		{"typed pickup address", func(d *domain.OrderDraft) { d.PickupAddress.Resolved = false }, "pickup_address"},
		{"missing receiver name", func(d *domain.OrderDraft) { d.Receiver.Name = "" }, "receiver_name"},
		{"bad receiver phone", func(d *domain.OrderDraft) { d.Receiver.Phone = "call me" }, "receiver_phone"},
		{"missing dropoff", func(d *domain.OrderDraft) { d.DropoffAddress = domain.ResolvedAddress{} }, "dropoff_address"},
		{"terms unchecked", func(d *domain.OrderDraft) { d.Consents.TermsAccepted = false; d.Consents.ValueConfirmed = false }, "terms_accepted"},
		{"value unchecked", func(d *domain.OrderDraft) { d.Consents.ValueConfirmed = false }, "value_confirmed"},
		{"pending quote", func(d *domain.OrderDraft) { d.Quote = domain.FeeQuote{CityID: "airdrie", Pending: true} }, "distance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := v.Validate(d)
			require.NotNil(t, err)
			assert.Equal(t, tt.field, err.Field)
			assert.NotEmpty(t, err.Message)
		})
	}
}
