package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/importiq/importiq-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for local
// development and single-node deployments; the interface contract is
// identical to the postgres driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	specializations   TEXT NOT NULL DEFAULT '[]',
	rating            REAL NOT NULL DEFAULT 0,
	trust_score       REAL NOT NULL DEFAULT 0,
	partnership_tier  TEXT NOT NULL DEFAULT 'none',
	pricing_tier      TEXT NOT NULL DEFAULT 'standard',
	response_time_min INTEGER NOT NULL DEFAULT 0,
	emergency_service INTEGER NOT NULL DEFAULT 0,
	verification      TEXT NOT NULL DEFAULT 'unverified',
	active            INTEGER NOT NULL DEFAULT 1,
	service_area_wkt  TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS availability (
	provider_id      TEXT NOT NULL,
	day_of_week      INTEGER NOT NULL,
	capacity_percent INTEGER NOT NULL,
	status           TEXT NOT NULL DEFAULT 'unknown',
	updated_at       DATETIME NOT NULL,
	PRIMARY KEY (provider_id, day_of_week)
);

CREATE TABLE IF NOT EXISTS raw_records (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	data_type     TEXT NOT NULL,
	raw_payload   BLOB NOT NULL,
	processed     BLOB,
	quality_score REAL NOT NULL,
	valid         INTEGER NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tariff_codes (
	code             TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	base_rate_text   TEXT NOT NULL DEFAULT '',
	rate_percent     REAL NOT NULL DEFAULT 0,
	vehicle_category TEXT NOT NULL DEFAULT '',
	engine_category  TEXT NOT NULL DEFAULT '',
	country_rates    TEXT NOT NULL DEFAULT '{}',
	source_url       TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auction_listings (
	source             TEXT NOT NULL,
	lot_number         TEXT NOT NULL,
	make               TEXT NOT NULL DEFAULT '',
	model              TEXT NOT NULL DEFAULT '',
	year               INTEGER NOT NULL DEFAULT 0,
	vin                TEXT NOT NULL DEFAULT '',
	mileage            INTEGER NOT NULL DEFAULT 0,
	current_bid        REAL NOT NULL DEFAULT 0,
	buy_now_price      REAL NOT NULL DEFAULT 0,
	damage_description TEXT NOT NULL DEFAULT '',
	damage_severity    TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	sale_date          TEXT NOT NULL DEFAULT '',
	url                TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL,
	PRIMARY KEY (source, lot_number)
);

CREATE TABLE IF NOT EXISTS regulatory_requirements (
	key             TEXT PRIMARY KEY,
	authority       TEXT NOT NULL,
	country         TEXT NOT NULL,
	title           TEXT NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	min_vehicle_age INTEGER NOT NULL DEFAULT 0,
	source_url      TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	records_found     INTEGER NOT NULL,
	records_processed INTEGER NOT NULL,
	success_rate      REAL NOT NULL,
	execution_time_ms INTEGER NOT NULL,
	errors            TEXT NOT NULL DEFAULT '[]',
	run_date          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS discovery_candidates (
	id           TEXT PRIMARY KEY,
	dedup_key    TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	rating       REAL NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	operational  INTEGER NOT NULL DEFAULT 1,
	phone        TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	suitability  REAL NOT NULL DEFAULT 0,
	state        TEXT NOT NULL DEFAULT 'proposed',
	source_term  TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS market_clusters (
	region         TEXT PRIMARY KEY,
	density        TEXT NOT NULL,
	provider_count INTEGER NOT NULL,
	service_gaps   TEXT NOT NULL DEFAULT '[]',
	opportunities  TEXT NOT NULL DEFAULT '[]',
	analyzed_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_active ON providers(active, verification);
CREATE INDEX IF NOT EXISTS idx_raw_records_source ON raw_records(source, created_at);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_source ON ingestion_runs(source, run_date);
CREATE INDEX IF NOT EXISTS idx_candidates_state ON discovery_candidates(state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProvider(ctx context.Context, p *model.ServiceProvider) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	specs, err := json.Marshal(p.Specializations)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal specializations")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO providers (id, name, latitude, longitude, specializations,
			rating, trust_score, partnership_tier, pricing_tier, response_time_min,
			emergency_service, verification, active, service_area_wkt, address,
			phone, website, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			specializations = excluded.specializations,
			rating = excluded.rating,
			trust_score = excluded.trust_score,
			partnership_tier = excluded.partnership_tier,
			pricing_tier = excluded.pricing_tier,
			response_time_min = excluded.response_time_min,
			emergency_service = excluded.emergency_service,
			verification = excluded.verification,
			active = excluded.active,
			service_area_wkt = excluded.service_area_wkt,
			address = excluded.address,
			phone = excluded.phone,
			website = excluded.website,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Latitude, p.Longitude, string(specs),
		p.Rating, p.TrustScore, string(p.Tier), string(p.Pricing), p.ResponseTimeMin,
		p.EmergencyService, string(p.Verification), p.Active, p.ServiceAreaWKT,
		p.Address, p.Phone, p.Website, now, now)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert provider %s", p.ID)
	}
	return nil
}

const sqliteProviderColumns = `
	id, name, latitude, longitude, specializations, rating, trust_score,
	partnership_tier, pricing_tier, response_time_min, emergency_service,
	verification, active, service_area_wkt, address, phone, website,
	created_at, updated_at`

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProvider(row sqliteScanner) (*model.ServiceProvider, error) {
	var p model.ServiceProvider
	var specs, tier, pricing, verification string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Latitude, &p.Longitude, &specs, &p.Rating, &p.TrustScore,
		&tier, &pricing, &p.ResponseTimeMin, &p.EmergencyService,
		&verification, &p.Active, &p.ServiceAreaWKT, &p.Address, &p.Phone,
		&p.Website, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if specs != "" {
		if err := json.Unmarshal([]byte(specs), &p.Specializations); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal specializations")
		}
	}
	p.Tier = model.PartnershipTier(tier)
	p.Pricing = model.PricingTier(pricing)
	p.Verification = model.VerificationStatus(verification)
	return &p, nil
}

func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.ServiceProvider, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteProviderColumns+` FROM providers WHERE id = ?`, id)
	p, err := scanSQLiteProvider(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get provider %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListActiveProviders(ctx context.Context) ([]model.ServiceProvider, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteProviderColumns+` FROM providers WHERE active = 1 AND verification = 'verified'`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active providers")
	}
	defer rows.Close()

	var out []model.ServiceProvider
	for rows.Next() {
		p, err := scanSQLiteProvider(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate providers")
}

func (s *SQLiteStore) SetServiceArea(ctx context.Context, providerID, wkt string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET service_area_wkt = ?, updated_at = ? WHERE id = ?`,
		wkt, time.Now().UTC(), providerID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set service area for %s", providerID)
	}
	return checkRowsAffected(res, "provider", providerID)
}

func (s *SQLiteStore) GetServiceArea(ctx context.Context, providerID string) (string, error) {
	var wkt string
	err := s.db.QueryRowContext(ctx,
		`SELECT service_area_wkt FROM providers WHERE id = ?`, providerID).Scan(&wkt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "sqlite: get service area for %s", providerID)
	}
	return wkt, nil
}

func (s *SQLiteStore) SetAvailability(ctx context.Context, snap model.AvailabilitySnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability (provider_id, day_of_week, capacity_percent, status, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (provider_id, day_of_week) DO UPDATE SET
			capacity_percent = excluded.capacity_percent,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		snap.ProviderID, int(snap.DayOfWeek), snap.CapacityPercent,
		string(snap.Status), time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set availability for %s", snap.ProviderID)
}

func (s *SQLiteStore) GetAvailability(ctx context.Context, providerID string) ([]model.AvailabilitySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_id, day_of_week, capacity_percent, status, updated_at
		FROM availability WHERE provider_id = ? ORDER BY day_of_week`, providerID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get availability for %s", providerID)
	}
	defer rows.Close()

	var out []model.AvailabilitySnapshot
	for rows.Next() {
		var snap model.AvailabilitySnapshot
		var day int
		var status string
		if err := rows.Scan(&snap.ProviderID, &day, &snap.CapacityPercent, &status, &snap.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan availability")
		}
		snap.DayOfWeek = time.Weekday(day)
		snap.Status = model.DayStatus(status)
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate availability")
}

func (s *SQLiteStore) AppendRawRecord(ctx context.Context, rec *model.RawIngestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_records (id, source, data_type, raw_payload, processed, quality_score, valid, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Source, rec.DataType, rec.RawPayload, rec.Processed,
		rec.QualityScore, rec.Valid, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: append raw record for %s", rec.Source)
}

func (s *SQLiteStore) UpsertTariffCode(ctx context.Context, tc *model.TariffCode) error {
	rates, err := json.Marshal(tc.CountryRates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal country rates")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tariff_codes (code, description, base_rate_text, rate_percent,
			vehicle_category, engine_category, country_rates, source_url, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (code) DO UPDATE SET
			description = excluded.description,
			base_rate_text = excluded.base_rate_text,
			rate_percent = excluded.rate_percent,
			vehicle_category = excluded.vehicle_category,
			engine_category = excluded.engine_category,
			country_rates = excluded.country_rates,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at`,
		tc.Code, tc.Description, tc.BaseRateText, tc.RatePercent,
		tc.VehicleCategory, tc.EngineCategory, string(rates), tc.SourceURL, now, now)
	return eris.Wrapf(err, "sqlite: upsert tariff code %s", tc.Code)
}

func (s *SQLiteStore) UpsertAuctionListing(ctx context.Context, al *model.AuctionListing) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_listings (source, lot_number, make, model, year, vin,
			mileage, current_bid, buy_now_price, damage_description, damage_severity,
			location, sale_date, url, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (source, lot_number) DO UPDATE SET
			make = excluded.make,
			model = excluded.model,
			year = excluded.year,
			vin = excluded.vin,
			mileage = excluded.mileage,
			current_bid = excluded.current_bid,
			buy_now_price = excluded.buy_now_price,
			damage_description = excluded.damage_description,
			damage_severity = excluded.damage_severity,
			location = excluded.location,
			sale_date = excluded.sale_date,
			url = excluded.url,
			updated_at = excluded.updated_at`,
		al.Source, al.LotNumber, al.Make, al.Model, al.Year, al.VIN,
		al.Mileage, al.CurrentBid, al.BuyNowPrice, al.DamageDescription,
		al.DamageSeverity, al.Location, al.SaleDate, al.URL, now, now)
	return eris.Wrapf(err, "sqlite: upsert auction listing %s/%s", al.Source, al.LotNumber)
}

func (s *SQLiteStore) UpsertRegulatoryRequirement(ctx context.Context, rr *model.RegulatoryRequirement) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regulatory_requirements (key, authority, country, title, summary,
			min_vehicle_age, source_url, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (key) DO UPDATE SET
			authority = excluded.authority,
			country = excluded.country,
			title = excluded.title,
			summary = excluded.summary,
			min_vehicle_age = excluded.min_vehicle_age,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at`,
		rr.Key, rr.Authority, rr.Country, rr.Title, rr.Summary,
		rr.MinVehicleAge, rr.SourceURL, now, now)
	return eris.Wrapf(err, "sqlite: upsert requirement %s", rr.Key)
}

func (s *SQLiteStore) RecordRunMetrics(ctx context.Context, m *model.IngestionRunMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.RunDate.IsZero() {
		m.RunDate = time.Now().UTC()
	}
	errs, err := json.Marshal(m.Errors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run errors")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (id, source, records_found, records_processed,
			success_rate, execution_time_ms, errors, run_date)
		VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.Source, m.RecordsFound, m.RecordsProcessed,
		m.SuccessRate, m.ExecutionTime.Milliseconds(), string(errs), m.RunDate)
	return eris.Wrapf(err, "sqlite: record run metrics for %s", m.Source)
}

func (s *SQLiteStore) ListRunMetrics(ctx context.Context, source string, limit int) ([]model.IngestionRunMetrics, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, source, records_found, records_processed, success_rate,
			execution_time_ms, errors, run_date
		FROM ingestion_runs`
	var args []any
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY run_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list run metrics")
	}
	defer rows.Close()

	var out []model.IngestionRunMetrics
	for rows.Next() {
		var m model.IngestionRunMetrics
		var ms int64
		var errsJSON string
		if err := rows.Scan(&m.ID, &m.Source, &m.RecordsFound, &m.RecordsProcessed,
			&m.SuccessRate, &ms, &errsJSON, &m.RunDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run metrics")
		}
		m.ExecutionTime = time.Duration(ms) * time.Millisecond
		if errsJSON != "" {
			if err := json.Unmarshal([]byte(errsJSON), &m.Errors); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run errors")
			}
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate run metrics")
}

func (s *SQLiteStore) SourceStats(ctx context.Context) ([]SourceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, COUNT(*), COALESCE(SUM(records_found), 0),
			COALESCE(SUM(records_processed), 0), COALESCE(AVG(success_rate), 0),
			MAX(run_date)
		FROM ingestion_runs GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: source stats")
	}
	defer rows.Close()

	var out []SourceStats
	for rows.Next() {
		var st SourceStats
		if err := rows.Scan(&st.Source, &st.Runs, &st.RecordsFound,
			&st.RecordsLoaded, &st.AvgSuccessRate, &st.LastRun); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source stats")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate source stats")
}

func (s *SQLiteStore) InsertCandidate(ctx context.Context, c *model.DiscoveryCandidate) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO discovery_candidates (id, dedup_key, name, address, latitude,
			longitude, rating, review_count, operational, phone, website, category,
			suitability, state, source_term, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (dedup_key) DO NOTHING`,
		c.ID, c.DedupKey, c.Name, c.Address, c.Latitude, c.Longitude,
		c.Rating, c.ReviewCount, c.Operational, c.Phone, c.Website, c.Category,
		c.Suitability, string(c.State), c.SourceTerm, now, now)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert candidate %s", c.DedupKey)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.DiscoveryCandidate, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, dedup_key, name, address, latitude, longitude, rating,
			review_count, operational, phone, website, category, suitability,
			state, source_term, created_at, updated_at
		FROM discovery_candidates WHERE suitability >= ?`
	args := []any{filter.MinScore}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY suitability DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
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
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		c.State = model.CandidateState(state)
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate candidates")
}

func (s *SQLiteStore) UpdateCandidateState(ctx context.Context, id string, state model.CandidateState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE discovery_candidates SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate %s", id)
	}
	return checkRowsAffected(res, "candidate", id)
}

func (s *SQLiteStore) ReplaceMarketClusters(ctx context.Context, clusters []model.MarketCluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: clusters begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM market_clusters`); err != nil {
		return eris.Wrap(err, "sqlite: clear clusters")
	}
	for _, c := range clusters {
		gaps, err := json.Marshal(c.ServiceGaps)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal service gaps")
		}
		opps, err := json.Marshal(c.Opportunities)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal opportunities")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO market_clusters (region, density, provider_count, service_gaps, opportunities, analyzed_at)
			VALUES (?,?,?,?,?,?)`,
			c.Region, string(c.Density), c.ProviderCount, string(gaps), string(opps), c.AnalyzedAt); err != nil {
			return eris.Wrapf(err, "sqlite: insert cluster %s", c.Region)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: clusters commit")
}

func (s *SQLiteStore) ListMarketClusters(ctx context.Context) ([]model.MarketCluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, density, provider_count, service_gaps, opportunities, analyzed_at
		FROM market_clusters ORDER BY region`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clusters")
	}
	defer rows.Close()

	var out []model.MarketCluster
	for rows.Next() {
		var c model.MarketCluster
		var density, gaps, opps string
		if err := rows.Scan(&c.Region, &density, &c.ProviderCount, &gaps, &opps, &c.AnalyzedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster")
		}
		c.Density = model.DensityClass(density)
		if gaps != "" {
			if err := json.Unmarshal([]byte(gaps), &c.ServiceGaps); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal service gaps")
			}
		}
		if opps != "" {
			if err := json.Unmarshal([]byte(opps), &c.Opportunities); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal opportunities")
			}
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate clusters")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
