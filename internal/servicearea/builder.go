package servicearea

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/routing"
)

// assumedSpeedKmh converts the minute budget into an outer sampling radius.
// Deliberately optimistic so the ring extends past the true boundary and the
// drive-time filter does the real work.
const assumedSpeedKmh = 60.0

// Builder computes a provider's approximate coverage polygon by sampling a
// ring of candidate points, querying real drive times, and taking the convex
// hull of the points reachable within the budget. The result is an
// approximation, not an exact isochrone.
type Builder struct {
	store       store.Store
	router      routing.Client
	angles      int
	radiusSteps int
}

// NewBuilder constructs a Builder. Non-positive sampling parameters fall
// back to 12 angles and 4 radius steps.
func NewBuilder(st store.Store, router routing.Client, angles, radiusSteps int) *Builder {
	if angles <= 0 {
		angles = 12
	}
	if radiusSteps <= 0 {
		radiusSteps = 4
	}
	return &Builder{store: st, router: router, angles: angles, radiusSteps: radiusSteps}
}

// Build recomputes the service area for one provider given a drive-time
// budget in minutes, stores the polygon, and returns its WKT. The polygon is
// replaced wholesale; a previous polygon is never patched. Returns
// ErrUndetermined when fewer than 3 sampled points are reachable in budget.
func (b *Builder) Build(ctx context.Context, providerID string, budgetMinutes float64) (string, error) {
	log := zap.L().With(
		zap.String("component", "servicearea"),
		zap.String("provider_id", providerID),
	)
	if budgetMinutes <= 0 {
		return "", eris.Errorf("servicearea: invalid drive-time budget %v", budgetMinutes)
	}

	p, err := b.store.GetProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", eris.Errorf("servicearea: provider %s not found", providerID)
	}

	origin := geo.Point{Lat: p.Latitude, Lng: p.Longitude}
	samples := b.samplePoints(origin, budgetMinutes)

	dests := make([]routing.Point, len(samples))
	for i, s := range samples {
		dests[i] = routing.Point{Lat: s.Lat, Lng: s.Lng}
	}
	elements, err := b.router.DistanceMatrix(ctx, routing.Point{Lat: origin.Lat, Lng: origin.Lng}, dests)
	if err != nil {
		return "", eris.Wrap(err, "servicearea: drive-time sampling")
	}

	reachable := make([]geo.Point, 0, len(elements))
	for i, el := range elements {
		if el.OK && el.DurationMinutes <= budgetMinutes {
			reachable = append(reachable, samples[i])
		}
	}
	log.Debug("drive-time sampling complete",
		zap.Int("sampled", len(samples)),
		zap.Int("reachable", len(reachable)),
	)

	area, err := PolygonWKT(ConvexHull(reachable))
	if err != nil {
		return "", err
	}
	if err := b.store.SetServiceArea(ctx, providerID, area); err != nil {
		return "", err
	}
	log.Info("service area rebuilt",
		zap.Float64("budget_minutes", budgetMinutes),
		zap.Int("hull_input_points", len(reachable)),
	)
	return area, nil
}

// samplePoints generates a ring of candidate points: radiusSteps concentric
// rings out to the distance a car would cover at assumedSpeedKmh within the
// budget, with b.angles evenly spaced bearings per ring.
func (b *Builder) samplePoints(origin geo.Point, budgetMinutes float64) []geo.Point {
	maxRadiusKm := budgetMinutes / 60.0 * assumedSpeedKmh
	step := maxRadiusKm / float64(b.radiusSteps)

	out := make([]geo.Point, 0, b.angles*b.radiusSteps)
	for ring := 1; ring <= b.radiusSteps; ring++ {
		radius := step * float64(ring)
		for a := 0; a < b.angles; a++ {
			bearing := 360.0 / float64(b.angles) * float64(a)
			out = append(out, geo.Destination(origin, bearing, radius))
		}
	}
	return out
}
