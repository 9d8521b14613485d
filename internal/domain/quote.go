package domain

import (
	"encoding/json"
	"math"
)

// FeeQuote is the pricing snapshot for one delivery. All amounts keep full precision;
// rounding to cents happens only when the quote is rendered or serialized.
type FeeQuote struct {
	CityID            string
	DistanceKm        *float64
	BaseFee           float64
	DistanceSurcharge float64
	RushSurcharge     float64
	Tax               float64
	Tip               float64
	Total             float64
	// Pending is true until a distance is known; Total is meaningless while pending
	Pending bool
}

// Subtotal is the taxable amount
func (q FeeQuote) Subtotal() float64 {
	return q.BaseFee + q.DistanceSurcharge + q.RushSurcharge
}

// TotalAmount returns the total and whether it is known
func (q FeeQuote) TotalAmount() (float64, bool) {
	if q.Pending {
		return 0, false
	}
	return q.Total, true
}

type feeQuoteJSON struct {
	CityID            string   `json:"city_id"`
	DistanceKm        *float64 `json:"distance_km"`
	BaseFee           *float64 `json:"base_fee"`
	DistanceSurcharge *float64 `json:"distance_surcharge"`
	RushSurcharge     *float64 `json:"rush_surcharge"`
	Tax               *float64 `json:"tax"`
	Tip               float64  `json:"tip"`
	Total             *float64 `json:"total"`
	Pending           bool     `json:"pending"`
}

// Rounded returns the quote in cents. Each part and the total are rounded on their own
// and Tax takes the residual, so the rounded parts always add up to the rounded Total.
func (q FeeQuote) Rounded() FeeQuote {
	r := q
	r.Tip = Round2(q.Tip)
	if q.Pending {
		return r
	}
	r.BaseFee = Round2(q.BaseFee)
	r.DistanceSurcharge = Round2(q.DistanceSurcharge)
	r.RushSurcharge = Round2(q.RushSurcharge)
	r.Total = Round2(q.Total)
	r.Tax = Round2(r.Total - r.BaseFee - r.DistanceSurcharge - r.RushSurcharge - r.Tip)
	return r
}

// MarshalJSON renders the Rounded amounts; a pending quote has null amounts.
func (q FeeQuote) MarshalJSON() ([]byte, error) {
	r := q.Rounded()
	out := feeQuoteJSON{
		CityID:     r.CityID,
		DistanceKm: r.DistanceKm,
		Tip:        r.Tip,
		Pending:    r.Pending,
	}
	if !r.Pending {
		out.BaseFee = &r.BaseFee
		out.DistanceSurcharge = &r.DistanceSurcharge
		out.RushSurcharge = &r.RushSurcharge
		out.Tax = &r.Tax
		out.Total = &r.Total
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the serialized snapshot back. Amounts are the rounded values.
func (q *FeeQuote) UnmarshalJSON(data []byte) error {
	var in feeQuoteJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*q = FeeQuote{
		CityID:     in.CityID,
		DistanceKm: in.DistanceKm,
		Tip:        in.Tip,
		Pending:    in.Pending || in.Total == nil,
	}
	q.BaseFee = deref(in.BaseFee)
	q.DistanceSurcharge = deref(in.DistanceSurcharge)
	q.RushSurcharge = deref(in.RushSurcharge)
	q.Tax = deref(in.Tax)
	q.Total = deref(in.Total)
	return nil
}

// Round2 rounds a currency amount to cents, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
