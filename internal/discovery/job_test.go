package discovery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/places"
)

var sydney = geo.Point{Lat: -33.8688, Lng: 151.2093}

// fakeDirectory returns canned results per query term.
type fakeDirectory struct {
	byTerm map[string][]places.Summary
	errFor map[string]bool
}

func (f *fakeDirectory) TextSearch(_ context.Context, req places.SearchRequest) ([]places.Summary, error) {
	if f.errFor[req.Query] {
		return nil, eris.New("places: upstream 429")
	}
	return f.byTerm[req.Query], nil
}

func goodPlace(name, address string) places.Summary {
	return places.Summary{
		Name:        name,
		Address:     address,
		Latitude:    -33.85,
		Longitude:   151.20,
		Rating:      4.7,
		ReviewCount: 120,
		Operational: true,
		Phone:       "+61 2 9999 0000",
		Website:     "https://example.com",
		Category:    "auto workshop",
	}
}

func newJobStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "discovery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestJob_Run_ProposesScoredCandidates(t *testing.T) {
	st := newJobStore(t)
	dir := &fakeDirectory{byTerm: map[string][]places.Summary{
		"term-a": {
			goodPlace("Harbour Motors", "1 Quay St"),
			{Name: "Closed Shack", Address: "9 Nowhere Rd", Rating: 2.0, Category: "bakery"},
		},
		"term-b": {
			// Same identity as term-a's hit, different casing.
			goodPlace("HARBOUR MOTORS", "1 Quay St"),
			goodPlace("Westside Compliance", "40 Church St"),
		},
	}}

	job := NewJob(st, dir, []string{"term-a", "term-b"}, 50, 0.6, 100)
	rep, err := job.Run(context.Background(), sydney)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.TermsSearched)
	assert.Equal(t, 4, rep.PlacesSeen)
	assert.Equal(t, 2, rep.Proposed)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 1, rep.BelowCutoff)
	assert.Empty(t, rep.Errors)

	proposed, err := st.ListCandidates(context.Background(), store.CandidateFilter{State: model.CandidateProposed})
	require.NoError(t, err)
	require.Len(t, proposed, 2)
	for _, c := range proposed {
		assert.Greater(t, c.Suitability, 0.6)
		assert.Equal(t, model.CandidateProposed, c.State)
	}
}

func TestJob_Run_FailingTermIsIsolated(t *testing.T) {
	st := newJobStore(t)
	dir := &fakeDirectory{
		byTerm: map[string][]places.Summary{
			"works": {goodPlace("Harbour Motors", "1 Quay St")},
		},
		errFor: map[string]bool{"throttled": true},
	}

	job := NewJob(st, dir, []string{"throttled", "works"}, 50, 0.6, 100)
	rep, err := job.Run(context.Background(), sydney)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.TermsSearched)
	assert.Equal(t, 1, rep.Proposed)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "429")
}

func TestJob_Run_RerunIsIdempotent(t *testing.T) {
	st := newJobStore(t)
	dir := &fakeDirectory{byTerm: map[string][]places.Summary{
		"term": {goodPlace("Harbour Motors", "1 Quay St")},
	}}
	job := NewJob(st, dir, []string{"term"}, 50, 0.6, 100)

	first, err := job.Run(context.Background(), sydney)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Proposed)

	second, err := job.Run(context.Background(), sydney)
	require.NoError(t, err)
	assert.Zero(t, second.Proposed)
	assert.Equal(t, 1, second.Duplicates)
}

func TestAdvance_VerifiedCandidateBecomesProvider(t *testing.T) {
	st := newJobStore(t)
	ctx := context.Background()

	c := &model.DiscoveryCandidate{
		DedupKey:    DedupKey("Harbour Motors", "1 Quay St"),
		Name:        "Harbour Motors",
		Address:     "1 Quay St",
		Latitude:    -33.85,
		Longitude:   151.20,
		Rating:      4.7,
		Suitability: 0.9,
		State:       model.CandidateProposed,
	}
	inserted, err := st.InsertCandidate(ctx, c)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, Advance(ctx, st, c, model.CandidatePending))
	require.NoError(t, Advance(ctx, st, c, model.CandidateVerified))
	assert.Equal(t, model.CandidateVerified, c.State)

	providers, err := st.ListActiveProviders(ctx)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "Harbour Motors", providers[0].Name)
	assert.Equal(t, model.TierProvisional, providers[0].Tier)
}

func TestAdvance_RejectsIllegalTransitions(t *testing.T) {
	st := newJobStore(t)
	ctx := context.Background()

	c := &model.DiscoveryCandidate{
		DedupKey: DedupKey("Shady Conversions", "2 Back Ln"),
		Name:     "Shady Conversions",
		Address:  "2 Back Ln",
		State:    model.CandidateProposed,
	}
	_, err := st.InsertCandidate(ctx, c)
	require.NoError(t, err)

	err = Advance(ctx, st, c, model.CandidateVerified)
	require.Error(t, err, "proposed cannot jump straight to verified")

	require.NoError(t, Advance(ctx, st, c, model.CandidatePending))
	require.NoError(t, Advance(ctx, st, c, model.CandidateRejected))

	err = Advance(ctx, st, c, model.CandidateVerified)
	require.Error(t, err, "rejected is terminal")

	providers, err := st.ListActiveProviders(ctx)
	require.NoError(t, err)
	assert.Empty(t, providers, "rejected candidates never reach the directory")
}
