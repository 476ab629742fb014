package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_GetProvider_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM providers WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProvider(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertProvider(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO providers`).
		WithArgs(pgxmock.AnyArg(), "Melbourne Import Specialists", -37.81, 144.96,
			pgxmock.AnyArg(), 4.6, 4.2, "preferred", "premium", 45, true,
			"verified", true, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := &model.ServiceProvider{
		Name:             "Melbourne Import Specialists",
		Latitude:         -37.81,
		Longitude:        144.96,
		Specializations:  []string{"jdm", "compliance"},
		Rating:           4.6,
		TrustScore:       4.2,
		Tier:             model.TierPreferred,
		Pricing:          model.PricingPremium,
		ResponseTimeMin:  45,
		EmergencyService: true,
		Verification:     model.VerificationVerified,
		Active:           true,
	}
	err := s.UpsertProvider(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID, "id should be assigned on first insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetServiceArea_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE providers SET service_area_wkt`).
		WithArgs("POLYGON((0 0,1 0,1 1,0 0))", "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetServiceArea(context.Background(), "missing-id", "POLYGON((0 0,1 0,1 1,0 0))")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCandidate_Dedup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := &model.DiscoveryCandidate{
		DedupKey: "acme motors|12 high st",
		Name:     "Acme Motors",
		Address:  "12 High St",
		State:    model.CandidateProposed,
	}

	mock.ExpectExec(`INSERT INTO discovery_candidates`).
		WithArgs(pgxmock.AnyArg(), c.DedupKey, c.Name, c.Address, 0.0, 0.0,
			0.0, 0, false, "", "", "", 0.0, "proposed", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO discovery_candidates`).
		WithArgs(pgxmock.AnyArg(), c.DedupKey, c.Name, c.Address, 0.0, 0.0,
			0.0, 0, false, "", "", "", 0.0, "proposed", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.InsertCandidate(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertCandidate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate dedup key should be skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordRunMetrics(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ingestion_runs`).
		WithArgs(pgxmock.AnyArg(), "hts_tariff", 120, 114, 0.95,
			int64(42000), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &model.IngestionRunMetrics{
		Source:           "hts_tariff",
		RecordsFound:     120,
		RecordsProcessed: 114,
		SuccessRate:      0.95,
		ExecutionTime:    42 * time.Second,
		Errors:           []string{"row 7: malformed rate"},
	}
	err := s.RecordRunMetrics(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, m.RunDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SourceStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	last := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM ingestion_runs GROUP BY source`).
		WillReturnRows(pgxmock.NewRows([]string{
			"source", "count", "found", "loaded", "avg_rate", "last_run",
		}).AddRow("copart", 3, 300, 280, 0.93, last).
			AddRow("hts_tariff", 2, 240, 240, 1.0, last))

	stats, err := s.SourceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "copart", stats[0].Source)
	assert.Equal(t, int64(280), stats[0].RecordsLoaded)
	assert.InDelta(t, 1.0, stats[1].AvgSuccessRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceMarketClusters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM market_clusters`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO market_clusters`).
		WithArgs("sydney-north", "saturated", 14, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.ReplaceMarketClusters(context.Background(), []model.MarketCluster{{
		Region:        "sydney-north",
		Density:       model.DensitySaturated,
		ProviderCount: 14,
		ServiceGaps:   []string{"emergency"},
		AnalyzedAt:    time.Now().UTC(),
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkLoadAuctionListings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE _tmp_upsert_auction_listings`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_auction_listings"}, []string{
		"source", "lot_number", "make", "model", "year", "vin",
		"mileage", "current_bid", "buy_now_price", "damage_description",
		"damage_severity", "location", "sale_date", "url", "created_at", "updated_at",
	}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "auction_listings"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.BulkLoadAuctionListings(context.Background(), []model.AuctionListing{
		{Source: "copart", LotNumber: "75240001", Make: "Toyota", Model: "Supra", Year: 1994},
		{Source: "copart", LotNumber: "75240002", Make: "Nissan", Model: "Skyline", Year: 1995},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
