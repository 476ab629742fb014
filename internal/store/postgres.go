package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/importiq/importiq-cli/internal/db"
	"github.com/importiq/importiq-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk auction loads).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	specializations   JSONB NOT NULL DEFAULT '[]',
	rating            DOUBLE PRECISION NOT NULL DEFAULT 0,
	trust_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	partnership_tier  TEXT NOT NULL DEFAULT 'none',
	pricing_tier      TEXT NOT NULL DEFAULT 'standard',
	response_time_min INTEGER NOT NULL DEFAULT 0,
	emergency_service BOOLEAN NOT NULL DEFAULT FALSE,
	verification      TEXT NOT NULL DEFAULT 'unverified',
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	service_area_wkt  TEXT,
	address           TEXT,
	phone             TEXT,
	website           TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS availability (
	provider_id      TEXT NOT NULL REFERENCES providers(id),
	day_of_week      INTEGER NOT NULL,
	capacity_percent INTEGER NOT NULL,
	status           TEXT NOT NULL DEFAULT 'unknown',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (provider_id, day_of_week)
);

CREATE TABLE IF NOT EXISTS raw_records (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	data_type     TEXT NOT NULL,
	raw_payload   BYTEA NOT NULL,
	processed     BYTEA,
	quality_score DOUBLE PRECISION NOT NULL,
	valid         BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tariff_codes (
	code             TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	base_rate_text   TEXT,
	rate_percent     DOUBLE PRECISION NOT NULL DEFAULT 0,
	vehicle_category TEXT,
	engine_category  TEXT,
	country_rates    JSONB,
	source_url       TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auction_listings (
	source             TEXT NOT NULL,
	lot_number         TEXT NOT NULL,
	make               TEXT,
	model              TEXT,
	year               INTEGER,
	vin                TEXT,
	mileage            INTEGER,
	current_bid        DOUBLE PRECISION,
	buy_now_price      DOUBLE PRECISION,
	damage_description TEXT,
	damage_severity    TEXT,
	location           TEXT,
	sale_date          TEXT,
	url                TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source, lot_number)
);

CREATE TABLE IF NOT EXISTS regulatory_requirements (
	key             TEXT PRIMARY KEY,
	authority       TEXT NOT NULL,
	country         TEXT NOT NULL,
	title           TEXT NOT NULL,
	summary         TEXT,
	min_vehicle_age INTEGER,
	source_url      TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	records_found     INTEGER NOT NULL,
	records_processed INTEGER NOT NULL,
	success_rate      DOUBLE PRECISION NOT NULL,
	execution_time_ms BIGINT NOT NULL,
	errors            JSONB,
	run_date          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS discovery_candidates (
	id           TEXT PRIMARY KEY,
	dedup_key    TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	operational  BOOLEAN NOT NULL DEFAULT TRUE,
	phone        TEXT,
	website      TEXT,
	category     TEXT,
	suitability  DOUBLE PRECISION NOT NULL DEFAULT 0,
	state        TEXT NOT NULL DEFAULT 'proposed',
	source_term  TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS market_clusters (
	region         TEXT PRIMARY KEY,
	density        TEXT NOT NULL,
	provider_count INTEGER NOT NULL,
	service_gaps   JSONB,
	opportunities  JSONB,
	analyzed_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_active ON providers(active, verification);
CREATE INDEX IF NOT EXISTS idx_raw_records_source ON raw_records(source, created_at);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_source ON ingestion_runs(source, run_date);
CREATE INDEX IF NOT EXISTS idx_candidates_state ON discovery_candidates(state);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertProvider inserts or updates a provider by id. The created_at column
// is written only on first insert.
func (s *PostgresStore) UpsertProvider(ctx context.Context, p *model.ServiceProvider) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	specs, err := json.Marshal(p.Specializations)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal specializations")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO providers (
			id, name, latitude, longitude, specializations, rating, trust_score,
			partnership_tier, pricing_tier, response_time_min, emergency_service,
			verification, active, service_area_wkt, address, phone, website,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			specializations = EXCLUDED.specializations,
			rating = EXCLUDED.rating,
			trust_score = EXCLUDED.trust_score,
			partnership_tier = EXCLUDED.partnership_tier,
			pricing_tier = EXCLUDED.pricing_tier,
			response_time_min = EXCLUDED.response_time_min,
			emergency_service = EXCLUDED.emergency_service,
			verification = EXCLUDED.verification,
			active = EXCLUDED.active,
			service_area_wkt = EXCLUDED.service_area_wkt,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			updated_at = now()`,
		p.ID, p.Name, p.Latitude, p.Longitude, specs, p.Rating, p.TrustScore,
		string(p.Tier), string(p.Pricing), p.ResponseTimeMin, p.EmergencyService,
		string(p.Verification), p.Active, nullIfEmpty(p.ServiceAreaWKT),
		nullIfEmpty(p.Address), nullIfEmpty(p.Phone), nullIfEmpty(p.Website),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert provider %s", p.ID)
	}
	return nil
}

const providerColumns = `
	id, name, latitude, longitude, specializations, rating, trust_score,
	partnership_tier, pricing_tier, response_time_min, emergency_service,
	verification, active, COALESCE(service_area_wkt, ''), COALESCE(address, ''),
	COALESCE(phone, ''), COALESCE(website, ''), created_at, updated_at`

func scanProvider(row pgx.Row) (*model.ServiceProvider, error) {
	var p model.ServiceProvider
	var specs []byte
	var tier, pricing, verification string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Latitude, &p.Longitude, &specs, &p.Rating, &p.TrustScore,
		&tier, &pricing, &p.ResponseTimeMin, &p.EmergencyService,
		&verification, &p.Active, &p.ServiceAreaWKT, &p.Address,
		&p.Phone, &p.Website, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specializations); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal specializations")
		}
	}
	p.Tier = model.PartnershipTier(tier)
	p.Pricing = model.PricingTier(pricing)
	p.Verification = model.VerificationStatus(verification)
	return &p, nil
}

// GetProvider fetches a provider by id. Returns nil, nil when absent.
func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.ServiceProvider, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	p, err := scanProvider(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get provider %s", id)
	}
	return p, nil
}

// ListActiveProviders returns all active, verified providers.
func (s *PostgresStore) ListActiveProviders(ctx context.Context) ([]model.ServiceProvider, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE active AND verification = 'verified'`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active providers")
	}
	defer rows.Close()

	var out []model.ServiceProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate providers")
	}
	return out, nil
}

// SetServiceArea stores the coverage polygon for a provider as WKT.
func (s *PostgresStore) SetServiceArea(ctx context.Context, providerID, wkt string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE providers SET service_area_wkt = $1, updated_at = now() WHERE id = $2`,
		wkt, providerID)
	if err != nil {
		return eris.Wrapf(err, "postgres: set service area for %s", providerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: provider %s not found", providerID)
	}
	return nil
}

// GetServiceArea returns the stored WKT polygon, or "" when undetermined.
func (s *PostgresStore) GetServiceArea(ctx context.Context, providerID string) (string, error) {
	var wkt string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(service_area_wkt, '') FROM providers WHERE id = $1`, providerID).Scan(&wkt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "postgres: get service area for %s", providerID)
	}
	return wkt, nil
}

// SetAvailability overwrites the capacity snapshot for one weekday.
func (s *PostgresStore) SetAvailability(ctx context.Context, snap model.AvailabilitySnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO availability (provider_id, day_of_week, capacity_percent, status, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (provider_id, day_of_week) DO UPDATE SET
			capacity_percent = EXCLUDED.capacity_percent,
			status = EXCLUDED.status,
			updated_at = now()`,
		snap.ProviderID, int(snap.DayOfWeek), snap.CapacityPercent, string(snap.Status))
	if err != nil {
		return eris.Wrapf(err, "postgres: set availability for %s", snap.ProviderID)
	}
	return nil
}

// GetAvailability returns all weekday snapshots for a provider.
func (s *PostgresStore) GetAvailability(ctx context.Context, providerID string) ([]model.AvailabilitySnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT provider_id, day_of_week, capacity_percent, status, updated_at
		FROM availability WHERE provider_id = $1 ORDER BY day_of_week`, providerID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get availability for %s", providerID)
	}
	defer rows.Close()

	var out []model.AvailabilitySnapshot
	for rows.Next() {
		var snap model.AvailabilitySnapshot
		var day int
		var status string
		if err := rows.Scan(&snap.ProviderID, &day, &snap.CapacityPercent, &status, &snap.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan availability")
		}
		snap.DayOfWeek = time.Weekday(day)
		snap.Status = model.DayStatus(status)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate availability")
	}
	return out, nil
}

// AppendRawRecord inserts one audit-trail row. Rows are never updated.
func (s *PostgresStore) AppendRawRecord(ctx context.Context, rec *model.RawIngestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO raw_records (id, source, data_type, raw_payload, processed, quality_score, valid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		rec.ID, rec.Source, rec.DataType, rec.RawPayload, rec.Processed, rec.QualityScore, rec.Valid)
	if err != nil {
		return eris.Wrapf(err, "postgres: append raw record for %s", rec.Source)
	}
	return nil
}

// UpsertTariffCode inserts or updates a tariff code by its natural key.
func (s *PostgresStore) UpsertTariffCode(ctx context.Context, tc *model.TariffCode) error {
	rates, err := json.Marshal(tc.CountryRates)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal country rates")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tariff_codes (code, description, base_rate_text, rate_percent,
			vehicle_category, engine_category, country_rates, source_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			base_rate_text = EXCLUDED.base_rate_text,
			rate_percent = EXCLUDED.rate_percent,
			vehicle_category = EXCLUDED.vehicle_category,
			engine_category = EXCLUDED.engine_category,
			country_rates = EXCLUDED.country_rates,
			source_url = EXCLUDED.source_url,
			updated_at = now()`,
		tc.Code, tc.Description, tc.BaseRateText, tc.RatePercent,
		tc.VehicleCategory, tc.EngineCategory, rates, tc.SourceURL)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert tariff code %s", tc.Code)
	}
	return nil
}

// UpsertAuctionListing inserts or updates a listing by (source, lot number).
func (s *PostgresStore) UpsertAuctionListing(ctx context.Context, al *model.AuctionListing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auction_listings (source, lot_number, make, model, year, vin,
			mileage, current_bid, buy_now_price, damage_description, damage_severity,
			location, sale_date, url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
		ON CONFLICT (source, lot_number) DO UPDATE SET
			make = EXCLUDED.make,
			model = EXCLUDED.model,
			year = EXCLUDED.year,
			vin = EXCLUDED.vin,
			mileage = EXCLUDED.mileage,
			current_bid = EXCLUDED.current_bid,
			buy_now_price = EXCLUDED.buy_now_price,
			damage_description = EXCLUDED.damage_description,
			damage_severity = EXCLUDED.damage_severity,
			location = EXCLUDED.location,
			sale_date = EXCLUDED.sale_date,
			url = EXCLUDED.url,
			updated_at = now()`,
		al.Source, al.LotNumber, al.Make, al.Model, al.Year, al.VIN,
		al.Mileage, al.CurrentBid, al.BuyNowPrice, al.DamageDescription,
		al.DamageSeverity, al.Location, al.SaleDate, al.URL)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert auction listing %s/%s", al.Source, al.LotNumber)
	}
	return nil
}

// BulkLoadAuctionListings upserts a batch of listings through a temp-table
// COPY, for backfills too large for row-at-a-time upserts. created_at is
// excluded from the update set so existing rows keep their creation time.
func (s *PostgresStore) BulkLoadAuctionListings(ctx context.Context, listings []model.AuctionListing) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(listings))
	for _, al := range listings {
		rows = append(rows, []any{
			al.Source, al.LotNumber, al.Make, al.Model, al.Year, al.VIN,
			al.Mileage, al.CurrentBid, al.BuyNowPrice, al.DamageDescription,
			al.DamageSeverity, al.Location, al.SaleDate, al.URL, now, now,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "auction_listings",
		Columns: []string{
			"source", "lot_number", "make", "model", "year", "vin",
			"mileage", "current_bid", "buy_now_price", "damage_description",
			"damage_severity", "location", "sale_date", "url", "created_at", "updated_at",
		},
		ConflictKeys: []string{"source", "lot_number"},
		UpdateCols: []string{
			"make", "model", "year", "vin", "mileage", "current_bid",
			"buy_now_price", "damage_description", "damage_severity",
			"location", "sale_date", "url", "updated_at",
		},
	}, rows)
}

// UpsertRegulatoryRequirement inserts or updates a requirement by key.
func (s *PostgresStore) UpsertRegulatoryRequirement(ctx context.Context, rr *model.RegulatoryRequirement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO regulatory_requirements (key, authority, country, title, summary,
			min_vehicle_age, source_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
		ON CONFLICT (key) DO UPDATE SET
			authority = EXCLUDED.authority,
			country = EXCLUDED.country,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			min_vehicle_age = EXCLUDED.min_vehicle_age,
			source_url = EXCLUDED.source_url,
			updated_at = now()`,
		rr.Key, rr.Authority, rr.Country, rr.Title, rr.Summary, rr.MinVehicleAge, rr.SourceURL)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert requirement %s", rr.Key)
	}
	return nil
}

// RecordRunMetrics appends one row of the run-metrics time series.
func (s *PostgresStore) RecordRunMetrics(ctx context.Context, m *model.IngestionRunMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.RunDate.IsZero() {
		m.RunDate = time.Now().UTC()
	}
	errs, err := json.Marshal(m.Errors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run errors")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (id, source, records_found, records_processed,
			success_rate, execution_time_ms, errors, run_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.Source, m.RecordsFound, m.RecordsProcessed,
		m.SuccessRate, m.ExecutionTime.Milliseconds(), errs, m.RunDate)
	if err != nil {
		return eris.Wrapf(err, "postgres: record run metrics for %s", m.Source)
	}
	return nil
}

// ListRunMetrics returns recent runs, newest first. Empty source means all.
func (s *PostgresStore) ListRunMetrics(ctx context.Context, source string, limit int) ([]model.IngestionRunMetrics, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, source, records_found, records_processed, success_rate,
			execution_time_ms, errors, run_date
		FROM ingestion_runs`
	args := []any{}
	if source != "" {
		query += ` WHERE source = $1 ORDER BY run_date DESC LIMIT $2`
		args = append(args, source, limit)
	} else {
		query += ` ORDER BY run_date DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list run metrics")
	}
	defer rows.Close()

	var out []model.IngestionRunMetrics
	for rows.Next() {
		var m model.IngestionRunMetrics
		var ms int64
		var errs []byte
		if err := rows.Scan(&m.ID, &m.Source, &m.RecordsFound, &m.RecordsProcessed,
			&m.SuccessRate, &ms, &errs, &m.RunDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run metrics")
		}
		m.ExecutionTime = time.Duration(ms) * time.Millisecond
		if len(errs) > 0 {
			if err := json.Unmarshal(errs, &m.Errors); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal run errors")
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate run metrics")
	}
	return out, nil
}

// SourceStats aggregates run outcomes per source.
func (s *PostgresStore) SourceStats(ctx context.Context) ([]SourceStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, COUNT(*), COALESCE(SUM(records_found), 0),
			COALESCE(SUM(records_processed), 0), COALESCE(AVG(success_rate), 0),
			MAX(run_date)
		FROM ingestion_runs GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: source stats")
	}
	defer rows.Close()

	var out []SourceStats
	for rows.Next() {
		var st SourceStats
		if err := rows.Scan(&st.Source, &st.Runs, &st.RecordsFound,
			&st.RecordsLoaded, &st.AvgSuccessRate, &st.LastRun); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source stats")
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate source stats")
	}
	return out, nil
}

// InsertCandidate inserts a discovery candidate unless its dedup key already
// exists. Returns true when a new row was inserted.
func (s *PostgresStore) InsertCandidate(ctx context.Context, c *model.DiscoveryCandidate) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO discovery_candidates (id, dedup_key, name, address, latitude,
			longitude, rating, review_count, operational, phone, website, category,
			suitability, state, source_term, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
		ON CONFLICT (dedup_key) DO NOTHING`,
		c.ID, c.DedupKey, c.Name, c.Address, c.Latitude, c.Longitude,
		c.Rating, c.ReviewCount, c.Operational, c.Phone, c.Website, c.Category,
		c.Suitability, string(c.State), c.SourceTerm)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert candidate %s", c.DedupKey)
	}
	return tag.RowsAffected() > 0, nil
}

// ListCandidates returns candidates matching the filter, best score first.
func (s *PostgresStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.DiscoveryCandidate, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, dedup_key, name, address, latitude, longitude, rating,
			review_count, operational, COALESCE(phone, ''), COALESCE(website, ''),
			COALESCE(category, ''), suitability, state, COALESCE(source_term, ''),
			created_at, updated_at
		FROM discovery_candidates
		WHERE suitability >= $1`
	args := []any{filter.MinScore}
	if filter.State != "" {
		query += ` AND state = $2 ORDER BY suitability DESC LIMIT $3`
		args = append(args, string(filter.State), limit)
	} else {
		query += ` ORDER BY suitability DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var out []model.DiscoveryCandidate
	for rows.Next() {
		var c model.DiscoveryCandidate
		var state string
		if err := rows.Scan(&c.ID, &c.DedupKey, &c.Name, &c.Address, &c.Latitude,
			&c.Longitude, &c.Rating, &c.ReviewCount, &c.Operational, &c.Phone,
			&c.Website, &c.Category, &c.Suitability, &state, &c.SourceTerm,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		c.State = model.CandidateState(state)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate candidates")
	}
	return out, nil
}

// UpdateCandidateState advances a candidate through the verification lifecycle.
func (s *PostgresStore) UpdateCandidateState(ctx context.Context, id string, state model.CandidateState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE discovery_candidates SET state = $1, updated_at = now() WHERE id = $2`,
		string(state), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: candidate %s not found", id)
	}
	return nil
}

// ReplaceMarketClusters atomically replaces all cluster rows.
func (s *PostgresStore) ReplaceMarketClusters(ctx context.Context, clusters []model.MarketCluster) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: clusters begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM market_clusters`); err != nil {
		return eris.Wrap(err, "postgres: clear clusters")
	}
	for _, c := range clusters {
		gaps, err := json.Marshal(c.ServiceGaps)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal service gaps")
		}
		opps, err := json.Marshal(c.Opportunities)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal opportunities")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO market_clusters (region, density, provider_count, service_gaps, opportunities, analyzed_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			c.Region, string(c.Density), c.ProviderCount, gaps, opps, c.AnalyzedAt); err != nil {
			return eris.Wrapf(err, "postgres: insert cluster %s", c.Region)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: clusters commit")
	}
	return nil
}

// ListMarketClusters returns the current analysis snapshot.
func (s *PostgresStore) ListMarketClusters(ctx context.Context) ([]model.MarketCluster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT region, density, provider_count, service_gaps, opportunities, analyzed_at
		FROM market_clusters ORDER BY region`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clusters")
	}
	defer rows.Close()

	var out []model.MarketCluster
	for rows.Next() {
		var c model.MarketCluster
		var density string
		var gaps, opps []byte
		if err := rows.Scan(&c.Region, &density, &c.ProviderCount, &gaps, &opps, &c.AnalyzedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cluster")
		}
		c.Density = model.DensityClass(density)
		if len(gaps) > 0 {
			if err := json.Unmarshal(gaps, &c.ServiceGaps); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal service gaps")
			}
		}
		if len(opps) > 0 {
			if err := json.Unmarshal(opps, &c.Opportunities); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal opportunities")
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate clusters")
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
