package model

import (
	"time"
)

// RawIngestionRecord is one row of the append-only audit trail. Rows are never
// mutated after insert; every persisted entity must trace back to at least one.
type RawIngestionRecord struct {
	ID           string    `json:"id" db:"id"`
	Source       string    `json:"source" db:"source"`
	DataType     string    `json:"data_type" db:"data_type"`
	RawPayload   []byte    `json:"raw_payload" db:"raw_payload"`
	Processed    []byte    `json:"processed,omitempty" db:"processed"`
	QualityScore float64   `json:"quality_score" db:"quality_score"`
	Valid        bool      `json:"valid" db:"valid"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TariffCode is a harmonized tariff schedule entry for vehicles.
// The code itself is the natural key.
type TariffCode struct {
	Code            string            `json:"code" db:"code"`
	Description     string            `json:"description" db:"description"`
	BaseRateText    string            `json:"base_rate_text" db:"base_rate_text"`
	RatePercent     float64           `json:"rate_percent" db:"rate_percent"`
	VehicleCategory string            `json:"vehicle_category" db:"vehicle_category"`
	EngineCategory  string            `json:"engine_category" db:"engine_category"`
	CountryRates    map[string]string `json:"country_rates,omitempty" db:"country_rates"`
	SourceURL       string            `json:"source_url" db:"source_url"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// AuctionListing is a salvage or surplus vehicle lot.
// The (source, lot number) pair is the natural key.
type AuctionListing struct {
	Source            string    `json:"source" db:"source"`
	LotNumber         string    `json:"lot_number" db:"lot_number"`
	Make              string    `json:"make" db:"make"`
	Model             string    `json:"model" db:"model"`
	Year              int       `json:"year" db:"year"`
	VIN               string    `json:"vin,omitempty" db:"vin"`
	Mileage           int       `json:"mileage" db:"mileage"`
	CurrentBid        float64   `json:"current_bid" db:"current_bid"`
	BuyNowPrice       float64   `json:"buy_now_price,omitempty" db:"buy_now_price"`
	DamageDescription string    `json:"damage_description,omitempty" db:"damage_description"`
	DamageSeverity    string    `json:"damage_severity,omitempty" db:"damage_severity"`
	Location          string    `json:"location,omitempty" db:"location"`
	SaleDate          string    `json:"sale_date,omitempty" db:"sale_date"`
	URL               string    `json:"url,omitempty" db:"url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// RegulatoryRequirement is a single import requirement published by a
// regulatory authority. Key is the natural key (authority + requirement slug).
type RegulatoryRequirement struct {
	Key           string    `json:"key" db:"key"`
	Authority     string    `json:"authority" db:"authority"`
	Country       string    `json:"country" db:"country"`
	Title         string    `json:"title" db:"title"`
	Summary       string    `json:"summary,omitempty" db:"summary"`
	MinVehicleAge int       `json:"min_vehicle_age,omitempty" db:"min_vehicle_age"`
	SourceURL     string    `json:"source_url" db:"source_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IngestionRunMetrics records the outcome of one ingestion job execution.
// One row per run; rows are never updated after insert.
type IngestionRunMetrics struct {
	ID               string        `json:"id" db:"id"`
	Source           string        `json:"source" db:"source"`
	RecordsFound     int           `json:"records_found" db:"records_found"`
	RecordsProcessed int           `json:"records_processed" db:"records_processed"`
	SuccessRate      float64       `json:"success_rate" db:"success_rate"`
	ExecutionTime    time.Duration `json:"execution_time" db:"execution_time_ms"`
	Errors           []string      `json:"errors,omitempty" db:"errors"`
	RunDate          time.Time     `json:"run_date" db:"run_date"`
}

// DensityClass buckets competitor density within a market region.
type DensityClass string

const (
	DensitySparse    DensityClass = "sparse"
	DensityBalanced  DensityClass = "balanced"
	DensitySaturated DensityClass = "saturated"
)

// MarketCluster is the per-region output of the market analysis job.
// Clusters are recomputed wholesale on each run, never merged.
type MarketCluster struct {
	Region        string       `json:"region" db:"region"`
	Density       DensityClass `json:"density" db:"density"`
	ProviderCount int          `json:"provider_count" db:"provider_count"`
	ServiceGaps   []string     `json:"service_gaps,omitempty" db:"service_gaps"`
	Opportunities []string     `json:"opportunities,omitempty" db:"opportunities"`
	AnalyzedAt    time.Time    `json:"analyzed_at" db:"analyzed_at"`
}
