// Package fee computes delivery fee quotes and resolves tip selections.
package fee

import (
	"time"

	"github.com/expresscouriers/checkout/internal/domain"
)

// Rush hour window, local time, Monday to Friday
const (
	rushHourStart = 16
	rushHourEnd   = 18
)

// Engine turns a city profile, an optional distance and a tip into a FeeQuote.
// It has no side effects; the clock is only read to decide the rush-hour surcharge.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

// NewEngine creates an engine that evaluates rush hour in loc (time.Local when nil)
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{now: time.Now, loc: loc}
}

// WithClock returns a copy of the engine reading time from now
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Quote prices a delivery. A nil distance yields a pending quote with no total.
func (e *Engine) Quote(city domain.CityProfile, distanceKm *float64, tip float64) domain.FeeQuote {
	q := domain.FeeQuote{
		CityID: city.ID,
		Tip:    tip,
	}
	if distanceKm == nil {
		q.Pending = true
		return q
	}
	d := *distanceKm
	if d < 0 {
		d = 0
	}
	q.DistanceKm = &d

	q.BaseFee = city.BaseDeliveryFee + d*city.DistanceRatePerKm
	if city.LongDistanceThresholdKm > 0 && d > city.LongDistanceThresholdKm {
		q.DistanceSurcharge = city.LongDistanceSurcharge
	}
	if e.IsRushHour() {
		q.RushSurcharge = city.RushHourSurcharge
	}

	subtotal := q.Subtotal()
	q.Tax = subtotal * city.TaxRate
	q.Total = subtotal + q.Tax + q.Tip
	return q
}

// IsRushHour reports whether the engine clock is inside the weekday rush window
func (e *Engine) IsRushHour() bool {
	return IsRushHour(e.now().In(e.loc))
}

// IsRushHour reports whether t falls Mon-Fri, 16:00 inclusive to 18:00 exclusive
func IsRushHour(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := t.Hour()
	return h >= rushHourStart && h < rushHourEnd
}
