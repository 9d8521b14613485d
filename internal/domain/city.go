package domain

import (
	"sort"
	"strings"
)

// LatLng is a WGS 84 coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is the north/south/east/west box a city serves
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether p lies inside the box (edges inclusive)
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// CityProfile is the pricing and service-area reference data for one city
type CityProfile struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	BaseDeliveryFee   float64 `json:"base_delivery_fee"`
	DistanceRatePerKm float64 `json:"distance_rate_per_km"`
	RushHourSurcharge float64 `json:"rush_hour_surcharge"`
	TaxRate           float64 `json:"tax_rate"`
	// Flat surcharge for trips longer than LongDistanceThresholdKm; a zero threshold disables it
	LongDistanceThresholdKm float64 `json:"long_distance_threshold_km"`
	LongDistanceSurcharge   float64 `json:"long_distance_surcharge"`
	Center                  LatLng  `json:"center"`
	Bounds                  Bounds  `json:"bounds"`
}

// CityTable is an immutable lookup of city profiles with a fallback profile
type CityTable struct {
	profiles map[string]CityProfile
	fallback CityProfile
}

// NewCityTable copies profiles into a table. fallbackID must name one of the profiles;
// otherwise the first profile by id becomes the fallback.
func NewCityTable(profiles []CityProfile, fallbackID string) CityTable {
	t := CityTable{profiles: make(map[string]CityProfile, len(profiles))}
	for _, p := range profiles {
		p.ID = NormalizeCityID(p.ID)
		t.profiles[p.ID] = p
	}
	if fb, ok := t.profiles[NormalizeCityID(fallbackID)]; ok {
		t.fallback = fb
	} else if ids := t.IDs(); len(ids) > 0 {
		t.fallback = t.profiles[ids[0]]
	}
	return t
}

// Lookup returns the profile for id, or the fallback profile when id is unknown.
// found reports whether id matched a configured city.
func (t CityTable) Lookup(id string) (profile CityProfile, found bool) {
	if p, ok := t.profiles[NormalizeCityID(id)]; ok {
		return p, true
	}
	return t.fallback, false
}

// Fallback returns the default profile
func (t CityTable) Fallback() CityProfile {
	return t.fallback
}

// IDs returns the configured city ids in sorted order
func (t CityTable) IDs() []string {
	ids := make([]string, 0, len(t.profiles))
	for id := range t.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profiles returns all profiles sorted by id
func (t CityTable) Profiles() []CityProfile {
	ids := t.IDs()
	out := make([]CityProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.profiles[id])
	}
	return out
}

// NormalizeCityID lowercases and trims a city identifier
func NormalizeCityID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
