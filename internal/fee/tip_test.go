package fee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/expresscouriers/checkout/internal/domain"
)

func TestTipSelector_PercentOfBaseFee(t *testing.T) {
	for _, base := range []float64{0, 12.5, 20, 21, 99.99} {
		for _, p := range []float64{5, 10, 15, 20} {
			var s TipSelector
			assert.InDelta(t, base*p/100, s.Resolve(Percent(p), base), 1e-12)
		}
	}
}

func TestTipSelector_ReselectTogglesToZero(t *testing.T) {
	var s TipSelector
	assert.Equal(t, 2.0, s.Resolve(Percent(10), 20))
	assert.Zero(t, s.Resolve(Percent(10), 20))
	_, active := s.ActivePercent()
	assert.False(t, active)

	// a third press selects it again
	assert.Equal(t, 2.0, s.Resolve(Percent(10), 20))
}

func TestTipSelector_SwitchingPercentDoesNotToggle(t *testing.T) {
	var s TipSelector
	s.Resolve(Percent(10), 20)
	assert.Equal(t, 3.0, s.Resolve(Percent(15), 20))
}

func TestTipSelector_CustomClearsPercentAndViceVersa(t *testing.T) {
	var s TipSelector
	s.Resolve(Percent(10), 20)

	assert.Equal(t, 4.25, s.Resolve(Custom("4.25"), 20))
	_, active := s.ActivePercent()
	assert.False(t, active)

	assert.Equal(t, 3.0, s.Resolve(Percent(15), 20))
	assert.Equal(t, 3.0, s.Amount(20))

	// custom amount was cleared by the percentage, so toggling off leaves nothing
	assert.Zero(t, s.Resolve(Percent(15), 20))
}

func TestTipSelector_CustomAfterToggleIsNotAToggle(t *testing.T) {
	var s TipSelector
	s.Resolve(Percent(10), 20)
	s.Resolve(Custom("1"), 20)
	// 10% is no longer active, so pressing it selects rather than toggles
	assert.Equal(t, 2.0, s.Resolve(Percent(10), 20))
}

func TestParseAmount_InvalidCoercesToZero(t *testing.T) {
	tests := map[string]float64{
		"":      0,
		"abc":   0,
		"-5":    0,
		"NaN":   0,
		"Inf":   0,
		"3.5":   3.5,
		" $2 ":  2,
		"1e1":   10,
		"2.005": 2.005,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseAmount(in), "input %q", in)
	}
}

func TestCalculator_RecomputesOnEveryChange(t *testing.T) {
	cities := domain.NewCityTable([]domain.CityProfile{airdrie}, "airdrie")
	engine := NewEngine(time.UTC).WithClock(at(10, 0))
	c := NewCalculator(engine, cities, "Airdrie")

	q := c.SelectTip(Percent(10))
	assert.True(t, q.Pending)
	assert.Equal(t, 2.0, q.Tip)

	q = c.SetDistance(km(5))
	assert.False(t, q.Pending)
	assert.Equal(t, 25.10, domain.Round2(q.Total))

	q = c.SelectTip(Custom("oops"))
	assert.Zero(t, q.Tip)
	assert.Equal(t, 23.10, domain.Round2(q.Total))

	q = c.SetDistance(nil)
	assert.True(t, q.Pending)
}

func TestCalculator_UnknownCityUsesFallback(t *testing.T) {
	calgary := airdrie
	calgary.ID = "calgary"
	calgary.BaseDeliveryFee = 25
	cities := domain.NewCityTable([]domain.CityProfile{airdrie, calgary}, "calgary")
	c := NewCalculator(NewEngine(time.UTC), cities, "edmonton")
	assert.Equal(t, "calgary", c.City().ID)
}
