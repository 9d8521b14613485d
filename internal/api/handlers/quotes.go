package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/fee"
	"github.com/expresscouriers/checkout/internal/geo"
)

// CityResponse is one served city
type CityResponse struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	BaseDeliveryFee   float64       `json:"base_delivery_fee"`
	DistanceRatePerKm float64       `json:"distance_rate_per_km"`
	RushHourSurcharge float64       `json:"rush_hour_surcharge"`
	TaxRate           float64       `json:"tax_rate"`
	Center            domain.LatLng `json:"center"`
	Bounds            domain.Bounds `json:"bounds"`
	Default           bool          `json:"default"`
}

// HandleListCities handles GET /v1/cities
func HandleListCities(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		fallback := cfg.Cities.Fallback().ID
		profiles := cfg.Cities.Profiles()
		out := make([]CityResponse, 0, len(profiles))
		for _, p := range profiles {
			out = append(out, CityResponse{
				ID:                p.ID,
				Name:              p.Name,
				BaseDeliveryFee:   p.BaseDeliveryFee,
				DistanceRatePerKm: p.DistanceRatePerKm,
				RushHourSurcharge: p.RushHourSurcharge,
				TaxRate:           p.TaxRate,
				Center:            p.Center,
				Bounds:            p.Bounds,
				Default:           p.ID == fallback,
			})
		}
		c.JSON(http.StatusOK, gin.H{"cities": out})
	}
}

// QuoteRequest is the fee calculator's form state
type QuoteRequest struct {
	City       string         `json:"city"`
	DistanceKm *float64       `json:"distance_km" binding:"omitempty,min=0"`
	Pickup     *domain.LatLng `json:"pickup"`
	Dropoff    *domain.LatLng `json:"dropoff"`
	TipPercent float64        `json:"tip_percent" binding:"omitempty,min=0,max=100"`
	TipAmount  string         `json:"tip_amount"`
}

// QuoteResponse carries the quote plus display strings rounded for the form
type QuoteResponse struct {
	Quote    domain.FeeQuote   `json:"quote"`
	City     string            `json:"city"`
	Display  map[string]string `json:"display"`
	Warnings []string          `json:"warnings,omitempty"`
}

// HandleCreateQuote handles POST /v1/quotes
func HandleCreateQuote(cfg *config.Config, engine *fee.Engine, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		city, found := cfg.Cities.Lookup(req.City)
		var warnings []string
		if req.City != "" && !found {
			warnings = append(warnings, fmt.Sprintf("Unknown city %q, using %s rates.", req.City, city.Name))
		}

		distance := req.DistanceKm
		if distance == nil && req.Pickup != nil && req.Dropoff != nil {
			d := geo.DistanceKm(*req.Pickup, *req.Dropoff)
			distance = &d
		}
		for _, pt := range []struct {
			label string
			p     *domain.LatLng
		}{{"pickup", req.Pickup}, {"drop-off", req.Dropoff}} {
			if pt.p != nil && !city.Bounds.Contains(*pt.p) {
				warnings = append(warnings, fmt.Sprintf("The %s address appears to be outside %s.", pt.label, city.Name))
			}
		}

		var tips fee.TipSelector
		switch {
		case req.TipPercent > 0:
			tips.Resolve(fee.Percent(req.TipPercent), city.BaseDeliveryFee)
		case req.TipAmount != "":
			tips.Resolve(fee.Custom(req.TipAmount), city.BaseDeliveryFee)
		}

		quote := engine.Quote(city, distance, tips.Amount(city.BaseDeliveryFee))
		logger.Debug("Quote computed",
			zap.String("city", city.ID),
			zap.Bool("pending", quote.Pending),
		)

		c.JSON(http.StatusOK, QuoteResponse{
			Quote:    quote,
			City:     city.ID,
			Display:  displayAmounts(quote),
			Warnings: warnings,
		})
	}
}

func displayAmounts(quote domain.FeeQuote) map[string]string {
	q := quote.Rounded()
	total, ok := q.TotalAmount()
	if !ok {
		return map[string]string{"total": "Pending", "tip": "$" + fee.FormatMoney(q.Tip)}
	}
	return map[string]string{
		"base_fee":           "$" + fee.FormatMoney(q.BaseFee),
		"distance_surcharge": "$" + fee.FormatMoney(q.DistanceSurcharge),
		"rush_surcharge":     "$" + fee.FormatMoney(q.RushSurcharge),
		"tax":                "$" + fee.FormatMoney(q.Tax),
		"tip":                "$" + fee.FormatMoney(q.Tip),
		"total":              "$" + fee.FormatMoney(total),
	}
}
