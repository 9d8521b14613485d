// Package geo resolves typed addresses into places and measures distances between them.
package geo

import (
	"context"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/pkg/errors"
)

const earthRadiusKm = 6371.0

// Place is a resolver suggestion
type Place struct {
	FormattedAddress string        `json:"formatted_address"`
	Location         domain.LatLng `json:"location"`
}

// Address converts the place into the draft's address form, keeping the customer's typed text
func (p Place) Address(typed string) domain.ResolvedAddress {
	return domain.ResolvedAddress{
		Text:             typed,
		FormattedAddress: p.FormattedAddress,
		Lat:              p.Location.Lat,
		Lng:              p.Location.Lng,
		Resolved:         true,
	}
}

// Resolver turns typed input into a place. inBounds is false when the place lies outside
// bounds; callers treat that as a warning only.
type Resolver interface {
	Resolve(ctx context.Context, input string, bounds domain.Bounds) (place Place, inBounds bool, err error)
}

// Geocoder is the address-resolution provider. bias narrows suggestions toward a city.
type Geocoder interface {
	Geocode(ctx context.Context, input string, bias domain.Bounds) (Place, error)
}

// BoundedResolver checks provider results against the city's bounds
type BoundedResolver struct {
	geocoder Geocoder
	logger   *zap.Logger
}

// NewBoundedResolver creates a resolver on top of geocoder
func NewBoundedResolver(geocoder Geocoder, logger *zap.Logger) *BoundedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoundedResolver{geocoder: geocoder, logger: logger}
}

func (r *BoundedResolver) Resolve(ctx context.Context, input string, bounds domain.Bounds) (Place, bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Place{}, false, &errors.ErrValidation{Field: "address", Message: "address is required"}
	}
	place, err := r.geocoder.Geocode(ctx, input, bounds)
	if err != nil {
		return Place{}, false, err
	}
	inBounds := bounds.Contains(place.Location)
	if !inBounds {
		r.logger.Warn("Address outside city bounds",
			zap.String("address", place.FormattedAddress),
			zap.Float64("lat", place.Location.Lat),
			zap.Float64("lng", place.Location.Lng),
		)
	}
	return place, inBounds, nil
}

// StaticGeocoder answers from a fixed gazetteer keyed by lowercased address text.
// It backs the CLI tools and tests where no provider is reachable.
type StaticGeocoder struct {
	mu     sync.RWMutex
	places map[string]Place
}

// NewStaticGeocoder creates an empty gazetteer
func NewStaticGeocoder() *StaticGeocoder {
	return &StaticGeocoder{places: make(map[string]Place)}
}

// Add registers place under input
func (g *StaticGeocoder) Add(input string, place Place) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.places[normalize(input)] = place
}

func (g *StaticGeocoder) Geocode(_ context.Context, input string, _ domain.Bounds) (Place, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.places[normalize(input)]
	if !ok {
		return Place{}, &errors.ErrNotFound{Resource: "place", ID: input}
	}
	return p, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DistanceKm returns the great-circle distance between a and b
func DistanceKm(a, b domain.LatLng) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180.0 }
	dlat := rad(b.Lat - a.Lat)
	dlng := rad(b.Lng - a.Lng)
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dlng/2)*math.Sin(dlng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
