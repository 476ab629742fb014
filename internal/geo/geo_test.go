package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	sydney    = Point{Lat: -33.8688, Lng: 151.2093}
	melbourne = Point{Lat: -37.8136, Lng: 144.9631}
)

func TestHaversineKm(t *testing.T) {
	// Sydney to Melbourne is roughly 714 km great-circle.
	d := HaversineKm(sydney, melbourne)
	assert.InDelta(t, 714, d, 10)

	assert.Zero(t, HaversineKm(sydney, sydney))

	// Symmetry.
	assert.InDelta(t, d, HaversineKm(melbourne, sydney), 1e-9)
}

func TestDestination(t *testing.T) {
	// Travelling 50 km due north raises latitude by about 0.45 degrees.
	north := Destination(sydney, 0, 50)
	assert.InDelta(t, sydney.Lat+50.0/111.0, north.Lat, 0.01)
	assert.InDelta(t, sydney.Lng, north.Lng, 0.01)

	// Round trip: the destination should be the stated distance away.
	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		p := Destination(sydney, bearing, 30)
		assert.InDelta(t, 30, HaversineKm(sydney, p), 0.05, "bearing %v", bearing)
	}
}

func TestDestinationNormalizesLongitude(t *testing.T) {
	nearDateline := Point{Lat: 0, Lng: 179.9}
	p := Destination(nearDateline, 90, 50)
	assert.LessOrEqual(t, p.Lng, 180.0)
	assert.GreaterOrEqual(t, p.Lng, -180.0)
}
