package match

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/routing"
)

// fakeRouter routes successfully except for destinations whose latitude is
// in the fail set.
type fakeRouter struct {
	failLat map[float64]bool
	calls   atomic.Int32
}

func (f *fakeRouter) Route(_ context.Context, _, dest routing.Point) (*routing.Route, error) {
	f.calls.Add(1)
	if f.failLat[dest.Lat] {
		return nil, eris.New("router: upstream timeout")
	}
	return &routing.Route{
		DurationMinutes: 22,
		FreeFlowMinutes: 18,
		DistanceKm:      15,
		Geometry:        "LINESTRING (151.21 -33.87, 151.0 -33.8)",
	}, nil
}

func (f *fakeRouter) DistanceMatrix(_ context.Context, _ routing.Point, dests []routing.Point) ([]routing.MatrixElement, error) {
	out := make([]routing.MatrixElement, len(dests))
	for i, d := range dests {
		out[i] = routing.MatrixElement{Destination: d, DurationMinutes: 20, FreeFlowMinutes: 18, DistanceKm: 15, OK: true}
	}
	return out, nil
}

func newEngineFixture(t *testing.T, router routing.Client) (*Engine, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	return NewEngine(st, router, DefaultCapacityPolicy(), 2), st
}

func seedProvider(t *testing.T, st store.Store, name string, lat, lng float64, tier model.PartnershipTier) string {
	t.Helper()
	p := &model.ServiceProvider{
		Name:         name,
		Latitude:     lat,
		Longitude:    lng,
		Rating:       4.0,
		TrustScore:   4.0,
		Tier:         tier,
		Pricing:      model.PricingStandard,
		Verification: model.VerificationVerified,
		Active:       true,
	}
	require.NoError(t, st.UpsertProvider(context.Background(), p))
	return p.ID
}

func TestEngine_EnhancesTopCandidatesOnly(t *testing.T) {
	router := &fakeRouter{}
	e, st := newEngineFixture(t, router)
	ctx := context.Background()

	seedProvider(t, st, "manly", -33.796, 151.285, model.TierPreferred)
	seedProvider(t, st, "parramatta", -33.815, 151.001, model.TierStandard)
	seedProvider(t, st, "cbd", -33.868, 151.207, model.TierNone)

	results, err := e.FindProvidersNear(ctx, model.ProximityQuery{
		Latitude: -33.87, Longitude: 151.21, MaxRadiusKm: 50,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, int32(2), router.calls.Load(), "only the top-N candidates get routed")
	require.NotNil(t, results[0].Enhanced)
	require.NotNil(t, results[1].Enhanced)
	assert.Nil(t, results[2].Enhanced)
	assert.Equal(t, model.TrafficModerate, results[0].Enhanced.Traffic)
}

func TestEngine_FailedEnhancementDropsCandidateFromEnhancedSet(t *testing.T) {
	router := &fakeRouter{failLat: map[float64]bool{-33.796: true}}
	e, st := newEngineFixture(t, router)
	ctx := context.Background()

	seedProvider(t, st, "manly", -33.796, 151.285, model.TierPreferred)
	seedProvider(t, st, "parramatta", -33.815, 151.001, model.TierStandard)

	results, err := e.FindProvidersNear(ctx, model.ProximityQuery{
		Latitude: -33.87, Longitude: 151.21, MaxRadiusKm: 50,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Nil(t, results[0].Enhanced, "failed route lookup must not fall back to the estimate")
	assert.NotNil(t, results[1].Enhanced, "other candidates are unaffected")
}

func TestEngine_NoCandidatesIsNotAnError(t *testing.T) {
	e, _ := newEngineFixture(t, &fakeRouter{})
	results, err := e.FindProvidersNear(context.Background(), model.ProximityQuery{
		Latitude: 51.5, Longitude: -0.12, MaxRadiusKm: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_CapacityFeedsScore(t *testing.T) {
	e, st := newEngineFixture(t, nil)
	ctx := context.Background()

	busyID := seedProvider(t, st, "busy-shop", -33.86, 151.20, model.TierStandard)
	seedProvider(t, st, "open-shop", -33.80, 151.10, model.TierStandard)

	for day := 0; day < 7; day++ {
		require.NoError(t, st.SetAvailability(ctx, model.AvailabilitySnapshot{
			ProviderID:      busyID,
			DayOfWeek:       time.Weekday(day),
			Status:          model.DayBusy,
			CapacityPercent: 90,
		}))
	}

	results, err := e.FindProvidersNear(ctx, model.ProximityQuery{
		Latitude: -33.87, Longitude: 151.21, MaxRadiusKm: 50,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var busy, open model.ProximityResult
	for _, r := range results {
		if r.ProviderID == busyID {
			busy = r
		} else {
			open = r
		}
	}
	assert.Less(t, busy.ConfidenceScore, open.ConfidenceScore,
		"busy capacity policy should outweigh the distance advantage")
}
