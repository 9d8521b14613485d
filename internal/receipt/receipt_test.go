package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expresscouriers/checkout/internal/domain"
)

func TestRender(t *testing.T) {
	d := 5.0
	rec := domain.FailedOrderRecord{
		Key: "failedOrder_1767225600000_ab12cd34",
		Draft: domain.OrderDraft{
			Sender:         domain.Contact{Name: "Dana Sender", Phone: "(403) 555-0100"},
			PickupAddress:  domain.ResolvedAddress{Text: "100 Main St", Resolved: true},
			Receiver:       domain.Contact{Name: "Riley Receiver", Phone: "(403) 555-0199"},
			DropoffAddress: domain.ResolvedAddress{Text: "200 1 Ave", Resolved: true},
			CityID:         "airdrie",
			Quote:          domain.FeeQuote{CityID: "airdrie", DistanceKm: &d, BaseFee: 22, Tax: 1.1, Tip: 2, Total: 25.1},
		},
		Reason:          "dispatch failed",
		PaymentCaptured: true,
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	pdf, filename, err := Render(rec, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Equal(t, "RECOVERY_failedOrder_1767225600000_ab12cd34.pdf", filename)
}

func TestRender_PendingQuote(t *testing.T) {
	rec := domain.FailedOrderRecord{
		Key:   "failedOrder_1_x",
		Draft: domain.OrderDraft{Quote: domain.FeeQuote{Pending: true}},
	}
	pdf, _, err := Render(rec, time.UTC)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}
