package cluster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

func newAnalyzerFixture(t *testing.T) (*Analyzer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cluster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewAnalyzer(st), st
}

func clusterProvider(t *testing.T, st store.Store, name string, lat, lng float64, tags []string, emergency bool) {
	t.Helper()
	require.NoError(t, st.UpsertProvider(context.Background(), &model.ServiceProvider{
		Name:             name,
		Latitude:         lat,
		Longitude:        lng,
		Specializations:  tags,
		EmergencyService: emergency,
		Verification:     model.VerificationVerified,
		Active:           true,
	}))
}

func TestRegionKey(t *testing.T) {
	assert.Equal(t, "-34.0:151.0", RegionKey(-33.87, 151.21))
	assert.Equal(t, "-34.0:151.0", RegionKey(-33.60, 151.49), "same half-degree cell")
	assert.Equal(t, "-33.5:151.0", RegionKey(-33.40, 151.21), "next cell north")
	assert.Equal(t, "0.0:0.0", RegionKey(0, 0))
}

func TestAnalyzer_Run(t *testing.T) {
	a, st := newAnalyzerFixture(t)
	ctx := context.Background()

	// Two providers in the Sydney cell, one isolated in the Newcastle cell.
	clusterProvider(t, st, "sydney-a", -33.87, 151.21, []string{"compliance", "inspection"}, true)
	clusterProvider(t, st, "sydney-b", -33.85, 151.18, []string{"modification", "electrical", "mechanical"}, false)
	clusterProvider(t, st, "newcastle", -32.93, 151.78, []string{"compliance"}, false)

	_, err := st.InsertCandidate(ctx, &model.DiscoveryCandidate{
		DedupKey: "harbour motors|1 quay st",
		Name:     "Harbour Motors",
		Address:  "1 Quay St",
		Latitude: -33.86, Longitude: 151.20,
		State: model.CandidateProposed,
	})
	require.NoError(t, err)

	clusters, err := a.Run(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	var sydney, newcastle model.MarketCluster
	for _, c := range clusters {
		switch c.Region {
		case RegionKey(-33.87, 151.21):
			sydney = c
		case RegionKey(-32.93, 151.78):
			newcastle = c
		}
	}

	assert.Equal(t, 2, sydney.ProviderCount)
	assert.Equal(t, model.DensitySparse, sydney.Density)
	assert.Empty(t, sydney.ServiceGaps, "the two shops cover every core service")
	assert.Contains(t, sydney.Opportunities, "1 unverified candidates awaiting review")

	assert.Equal(t, 1, newcastle.ProviderCount)
	assert.ElementsMatch(t, []string{"inspection", "modification", "electrical", "mechanical"}, newcastle.ServiceGaps)
	assert.Contains(t, newcastle.Opportunities, "no emergency-capable provider in region")

	// A second run replaces, never merges.
	again, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	stored, err := st.ListMarketClusters(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestClassifyDensity(t *testing.T) {
	assert.Equal(t, model.DensitySparse, classifyDensity(0))
	assert.Equal(t, model.DensitySparse, classifyDensity(2))
	assert.Equal(t, model.DensityBalanced, classifyDensity(3))
	assert.Equal(t, model.DensityBalanced, classifyDensity(8))
	assert.Equal(t, model.DensitySaturated, classifyDensity(9))
}
