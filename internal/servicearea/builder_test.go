package servicearea

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/routing"
)

// matrixFunc adapts a function to the routing.Client interface for tests.
type matrixFunc func(origin routing.Point, dests []routing.Point) ([]routing.MatrixElement, error)

func (f matrixFunc) DistanceMatrix(_ context.Context, origin routing.Point, dests []routing.Point) ([]routing.MatrixElement, error) {
	return f(origin, dests)
}

func (f matrixFunc) Route(context.Context, routing.Point, routing.Point) (*routing.Route, error) {
	panic("not used by the builder")
}

// steadySpeedRouter reports one minute of driving per kilometer of
// great-circle distance, so a 30 minute budget reaches 30 km out.
func steadySpeedRouter() matrixFunc {
	return func(origin routing.Point, dests []routing.Point) ([]routing.MatrixElement, error) {
		out := make([]routing.MatrixElement, len(dests))
		for i, d := range dests {
			km := geo.HaversineKm(geo.Point{Lat: origin.Lat, Lng: origin.Lng}, geo.Point{Lat: d.Lat, Lng: d.Lng})
			out[i] = routing.MatrixElement{
				Destination:     d,
				DurationMinutes: km,
				FreeFlowMinutes: km,
				DistanceKm:      km,
				OK:              true,
			}
		}
		return out, nil
	}
}

func newBuilderFixture(t *testing.T, router routing.Client) (*Builder, store.Store, string) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "area.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	p := &model.ServiceProvider{
		Name:         "Harbour Compliance Workshop",
		Latitude:     -33.8688,
		Longitude:    151.2093,
		Verification: model.VerificationVerified,
		Active:       true,
	}
	require.NoError(t, st.UpsertProvider(context.Background(), p))
	return NewBuilder(st, router, 8, 3), st, p.ID
}

func TestBuilder_BuildStoresHullPolygon(t *testing.T) {
	b, st, id := newBuilderFixture(t, steadySpeedRouter())
	ctx := context.Background()

	area, err := b.Build(ctx, id, 30)
	require.NoError(t, err)
	assert.Contains(t, area, "POLYGON")

	stored, err := st.GetServiceArea(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, area, stored)
}

func TestBuilder_UndeterminedWhenTooFewReachable(t *testing.T) {
	// Only the first two sampled points route at all.
	router := matrixFunc(func(_ routing.Point, dests []routing.Point) ([]routing.MatrixElement, error) {
		out := make([]routing.MatrixElement, len(dests))
		for i, d := range dests {
			out[i] = routing.MatrixElement{Destination: d, DurationMinutes: 5, OK: i < 2}
		}
		return out, nil
	})
	b, st, id := newBuilderFixture(t, router)
	ctx := context.Background()

	_, err := b.Build(ctx, id, 30)
	assert.ErrorIs(t, err, ErrUndetermined)

	stored, err := st.GetServiceArea(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored, "an undetermined run must not store a degenerate polygon")
}

func TestBuilder_UnknownProvider(t *testing.T) {
	b, _, _ := newBuilderFixture(t, steadySpeedRouter())
	_, err := b.Build(context.Background(), "nope", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestBuilder_RejectsNonPositiveBudget(t *testing.T) {
	b, _, id := newBuilderFixture(t, steadySpeedRouter())
	_, err := b.Build(context.Background(), id, 0)
	require.Error(t, err)
}
