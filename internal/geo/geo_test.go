package geo

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/pkg/errors"
)

var airdrieBounds = domain.Bounds{North: 51.3227, South: 51.2627, East: -113.9834, West: -114.0434}

func TestDistanceKm(t *testing.T) {
	// one degree of longitude on the equator
	assert.InDelta(t, 111.19, DistanceKm(domain.LatLng{}, domain.LatLng{Lng: 1}), 0.01)

	p := domain.LatLng{Lat: 51.2927, Lng: -114.0134}
	assert.Zero(t, DistanceKm(p, p))

	calgary := domain.LatLng{Lat: 51.0447, Lng: -114.0719}
	assert.InDelta(t, DistanceKm(p, calgary), DistanceKm(calgary, p), 1e-9)
	assert.InDelta(t, 27.9, DistanceKm(p, calgary), 0.5)
}

func TestBoundedResolver_InAndOutOfBounds(t *testing.T) {
	g := NewStaticGeocoder()
	g.Add("100 Main St", Place{FormattedAddress: "100 Main St N, Airdrie, AB", Location: domain.LatLng{Lat: 51.29, Lng: -114.01}})
	g.Add("1 Stephen Ave", Place{FormattedAddress: "1 Stephen Ave, Calgary, AB", Location: domain.LatLng{Lat: 51.04, Lng: -114.06}})
	r := NewBoundedResolver(g, nil)

	p, in, err := r.Resolve(context.Background(), "  100  main st ", airdrieBounds)
	require.NoError(t, err)
	assert.True(t, in)
	assert.Equal(t, "100 Main St N, Airdrie, AB", p.FormattedAddress)

	addr := p.Address("100 main st")
	assert.True(t, addr.Resolved)
	assert.Equal(t, "100 main st", addr.Text)

	_, in, err = r.Resolve(context.Background(), "1 Stephen Ave", airdrieBounds)
	require.NoError(t, err)
	assert.False(t, in, "out of bounds is reported, not rejected")
}

func TestBoundedResolver_Errors(t *testing.T) {
	r := NewBoundedResolver(NewStaticGeocoder(), nil)

	_, _, err := r.Resolve(context.Background(), "   ", airdrieBounds)
	var verr *errors.ErrValidation
	assert.True(t, goerrors.As(err, &verr))

	_, _, err = r.Resolve(context.Background(), "nowhere", airdrieBounds)
	var nf *errors.ErrNotFound
	assert.True(t, goerrors.As(err, &nf))
}
