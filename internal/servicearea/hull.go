package servicearea

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/importiq/importiq-cli/internal/geo"
)

// ErrUndetermined is returned when too few points are reachable within the
// drive-time budget to form a polygon.
var ErrUndetermined = eris.New("servicearea: fewer than 3 reachable points, coverage undetermined")

// ConvexHull returns the convex hull of the given points in counter-clockwise
// order, without repeating the first point. Uses the monotone chain algorithm.
// Collinear points on the hull boundary are dropped.
func ConvexHull(points []geo.Point) []geo.Point {
	pts := make([]geo.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lng != pts[j].Lng {
			return pts[i].Lng < pts[j].Lng
		}
		return pts[i].Lat < pts[j].Lat
	})
	// Dedup after sort; duplicate samples are common when radii collapse.
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	var lower, upper []geo.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// cross is the z-component of the cross product (b-a) x (c-a), treating
// lng as x and lat as y.
func cross(a, b, c geo.Point) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

// PolygonWKT builds a closed polygon from the hull vertices and renders it
// as WKT with lng/lat coordinate order. Returns ErrUndetermined when the
// hull is degenerate.
func PolygonWKT(hull []geo.Point) (string, error) {
	if len(hull) < 3 {
		return "", ErrUndetermined
	}
	ring := make([]geom.Coord, 0, len(hull)+1)
	for _, p := range hull {
		ring = append(ring, geom.Coord{p.Lng, p.Lat})
	}
	ring = append(ring, ring[0])

	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords([][]geom.Coord{ring}); err != nil {
		return "", eris.Wrap(err, "servicearea: build polygon")
	}
	out, err := wkt.Marshal(poly)
	if err != nil {
		return "", eris.Wrap(err, "servicearea: encode polygon")
	}
	return out, nil
}
