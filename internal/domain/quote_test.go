package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRounded_PartsAddUpToTotal(t *testing.T) {
	d := 5.01
	q := FeeQuote{
		CityID:        "calgary",
		DistanceKm:    &d,
		BaseFee:       10.004,
		RushSurcharge: 10.004,
		Tip:           1.004,
	}
	q.Tax = q.Subtotal() * 0.05
	q.Total = q.Subtotal() + q.Tax + q.Tip

	// rounding every part on its own would show 10.00 + 10.00 + 1.00 + 1.00 = 22.00
	// against a total of 22.01
	r := q.Rounded()
	assert.Equal(t, 22.01, r.Total)
	assert.Equal(t, 10.00, r.BaseFee)
	assert.Equal(t, 10.00, r.RushSurcharge)
	assert.Equal(t, 1.00, r.Tip)
	assert.Equal(t, 1.01, r.Tax)
	assert.Equal(t, r.Total, Round2(r.BaseFee+r.DistanceSurcharge+r.RushSurcharge+r.Tax+r.Tip))
}

func TestRounded_PendingKeepsOnlyTip(t *testing.T) {
	r := FeeQuote{CityID: "airdrie", Tip: 2.004, Pending: true}.Rounded()
	assert.True(t, r.Pending)
	assert.Equal(t, 2.00, r.Tip)
	_, ok := r.TotalAmount()
	assert.False(t, ok)
}

func TestFeeQuoteJSON_UsesRoundedParts(t *testing.T) {
	d := 5.0
	q := FeeQuote{CityID: "airdrie", DistanceKm: &d, BaseFee: 22, Tax: 1.1, Tip: 2, Total: 25.1}
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"city_id": "airdrie", "distance_km": 5, "base_fee": 22, "distance_surcharge": 0,
		"rush_surcharge": 0, "tax": 1.1, "tip": 2, "total": 25.1, "pending": false
	}`, string(raw))

	raw, err = json.Marshal(FeeQuote{CityID: "airdrie", Pending: true})
	require.NoError(t, err)
	var back FeeQuote
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Pending)
}
