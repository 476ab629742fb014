package servicearea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/geo"
)

func TestConvexHull_DropsInteriorPoints(t *testing.T) {
	pts := []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 4},
		{Lat: 4, Lng: 4},
		{Lat: 4, Lng: 0},
		{Lat: 2, Lng: 2}, // interior
		{Lat: 1, Lng: 2}, // interior
	}
	hull := ConvexHull(pts)
	assert.Len(t, hull, 4)
	for _, h := range hull {
		assert.Contains(t, pts[:4], h)
	}
}

func TestConvexHull_DedupsAndHandlesCollinear(t *testing.T) {
	collinear := []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 1, Lng: 1},
		{Lat: 2, Lng: 2},
		{Lat: 1, Lng: 1},
	}
	hull := ConvexHull(collinear)
	assert.Len(t, hull, 2, "a line has no area; only the endpoints survive")

	dups := []geo.Point{{Lat: 3, Lng: 3}, {Lat: 3, Lng: 3}, {Lat: 3, Lng: 3}}
	assert.Len(t, ConvexHull(dups), 1)
}

func TestPolygonWKT(t *testing.T) {
	hull := []geo.Point{
		{Lat: -33.9, Lng: 151.1},
		{Lat: -33.9, Lng: 151.3},
		{Lat: -33.7, Lng: 151.2},
	}
	out, err := PolygonWKT(hull)
	require.NoError(t, err)
	assert.Contains(t, out, "POLYGON")
	// Ring is closed: first vertex appears twice.
	assert.Contains(t, out, "151.1 -33.9")

	_, err = PolygonWKT(hull[:2])
	assert.ErrorIs(t, err, ErrUndetermined)
}
