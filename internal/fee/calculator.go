package fee

import (
	"github.com/expresscouriers/checkout/internal/domain"
)

// Calculator is the form-side fee state: the selected city, the distance once it is
// known and the tip controls. Every change returns a freshly computed quote.
type Calculator struct {
	engine   *Engine
	cities   domain.CityTable
	city     domain.CityProfile
	distance *float64
	tips     TipSelector
}

// NewCalculator starts a calculator for cityID with no distance and no tip
func NewCalculator(engine *Engine, cities domain.CityTable, cityID string) *Calculator {
	city, _ := cities.Lookup(cityID)
	return &Calculator{engine: engine, cities: cities, city: city}
}

// SetCity switches city; the tip selection is kept and re-evaluated
func (c *Calculator) SetCity(cityID string) domain.FeeQuote {
	c.city, _ = c.cities.Lookup(cityID)
	return c.Quote()
}

// SetDistance records the computed travel distance; nil makes the quote pending again
func (c *Calculator) SetDistance(km *float64) domain.FeeQuote {
	if km == nil {
		c.distance = nil
	} else {
		d := *km
		c.distance = &d
	}
	return c.Quote()
}

// SelectTip applies a tip selection
func (c *Calculator) SelectTip(sel TipSelection) domain.FeeQuote {
	c.tips.Resolve(sel, c.city.BaseDeliveryFee)
	return c.Quote()
}

// City returns the active city profile
func (c *Calculator) City() domain.CityProfile {
	return c.city
}

// Quote recomputes the quote from the current state
func (c *Calculator) Quote() domain.FeeQuote {
	return c.engine.Quote(c.city, c.distance, c.tips.Amount(c.city.BaseDeliveryFee))
}
