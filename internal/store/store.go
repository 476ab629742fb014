// Package store provides durable persistence for providers, ingested
// entities, the raw audit trail, and run metrics.
package store

import (
	"context"
	"time"

	"github.com/importiq/importiq-cli/internal/model"
)

// SourceStats summarizes ingestion outcomes for one source.
type SourceStats struct {
	Source          string    `json:"source"`
	Runs            int       `json:"runs"`
	RecordsFound    int       `json:"records_found"`
	RecordsLoaded   int       `json:"records_loaded"`
	AvgSuccessRate  float64   `json:"avg_success_rate"`
	LastRun         time.Time `json:"last_run"`
}

// CandidateFilter selects discovery candidates for listing.
type CandidateFilter struct {
	State    model.CandidateState
	MinScore float64
	Limit    int
}

// Store defines the persistence interface shared by the postgres and sqlite
// drivers. Every upsert is idempotent: repeating a call with the same input
// leaves the stored state unchanged, and creation timestamps are preserved
// across updates.
type Store interface {
	// Providers
	UpsertProvider(ctx context.Context, p *model.ServiceProvider) error
	GetProvider(ctx context.Context, id string) (*model.ServiceProvider, error)
	ListActiveProviders(ctx context.Context) ([]model.ServiceProvider, error)
	SetServiceArea(ctx context.Context, providerID, wkt string) error
	GetServiceArea(ctx context.Context, providerID string) (string, error)

	// Availability cache
	SetAvailability(ctx context.Context, snap model.AvailabilitySnapshot) error
	GetAvailability(ctx context.Context, providerID string) ([]model.AvailabilitySnapshot, error)

	// Audit trail (append-only)
	AppendRawRecord(ctx context.Context, rec *model.RawIngestionRecord) error

	// Processed entities (natural-key upserts)
	UpsertTariffCode(ctx context.Context, tc *model.TariffCode) error
	UpsertAuctionListing(ctx context.Context, al *model.AuctionListing) error
	UpsertRegulatoryRequirement(ctx context.Context, rr *model.RegulatoryRequirement) error

	// Run metrics (insert-only time series)
	RecordRunMetrics(ctx context.Context, m *model.IngestionRunMetrics) error
	ListRunMetrics(ctx context.Context, source string, limit int) ([]model.IngestionRunMetrics, error)
	SourceStats(ctx context.Context) ([]SourceStats, error)

	// Discovery candidates
	InsertCandidate(ctx context.Context, c *model.DiscoveryCandidate) (bool, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.DiscoveryCandidate, error)
	UpdateCandidateState(ctx context.Context, id string, state model.CandidateState) error

	// Market clusters (replace, not merge)
	ReplaceMarketClusters(ctx context.Context, clusters []model.MarketCluster) error
	ListMarketClusters(ctx context.Context) ([]model.MarketCluster, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
