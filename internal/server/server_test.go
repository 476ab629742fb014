package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importiq/importiq-cli/internal/match"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	engine := match.NewEngine(st, nil, match.DefaultCapacityPolicy(), 5)
	return New(engine, st, monitoring.NewCollector(st)), st
}

func seedSydneyProvider(t *testing.T, st store.Store) *model.ServiceProvider {
	t.Helper()
	p := &model.ServiceProvider{
		Name:         "Harbour Compliance Workshop",
		Latitude:     -33.85,
		Longitude:    151.20,
		Rating:       4.5,
		TrustScore:   4.0,
		Tier:         model.TierPreferred,
		Pricing:      model.PricingStandard,
		Verification: model.VerificationVerified,
		Active:       true,
	}
	require.NoError(t, st.UpsertProvider(context.Background(), p))
	return p
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ProvidersNear(t *testing.T) {
	s, st := newTestServer(t)
	seedSydneyProvider(t, st)

	rec := get(t, s, "/v1/providers/near?lat=-33.87&lng=151.21&radius_km=50")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int                     `json:"count"`
		Results []model.ProximityResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Harbour Compliance Workshop", resp.Results[0].Name)
	assert.Nil(t, resp.Results[0].Enhanced, "no routing client configured")
}

func TestServer_ProvidersNear_EmptyIsOKNotError(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/v1/providers/near?lat=51.5&lng=-0.12")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestServer_ProvidersNear_BadInput(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/providers/near",
		"/v1/providers/near?lat=abc&lng=151",
		"/v1/providers/near?lat=-33.87&lng=151.21&radius_km=-5",
		"/v1/providers/near?lat=-95&lng=151.21",
		"/v1/providers/near?lat=-33.87&lng=151.21&urgency=casual",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestServer_ServiceArea(t *testing.T) {
	s, st := newTestServer(t)
	p := seedSydneyProvider(t, st)
	ctx := context.Background()

	rec := get(t, s, "/v1/providers/"+p.ID+"/service-area")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"determined":false`)

	wkt := "POLYGON ((151.1 -33.9, 151.3 -33.9, 151.2 -33.7, 151.1 -33.9))"
	require.NoError(t, st.SetServiceArea(ctx, p.ID, wkt))

	rec = get(t, s, "/v1/providers/"+p.ID+"/service-area")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["determined"])
	assert.Equal(t, wkt, resp["service_area_wkt"])

	rec = get(t, s, "/v1/providers/no-such-id/service-area")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_IngestionStats(t *testing.T) {
	s, st := newTestServer(t)
	require.NoError(t, st.RecordRunMetrics(context.Background(), &model.IngestionRunMetrics{
		Source:           "hts_tariff",
		RecordsFound:     10,
		RecordsProcessed: 9,
		SuccessRate:      0.9,
		ExecutionTime:    2 * time.Second,
		RunDate:          time.Now().UTC(),
	}))

	rec := get(t, s, "/v1/ingestion/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap monitoring.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Sources, 1)
	assert.Equal(t, "hts_tariff", snap.Sources[0].Source)
	assert.Equal(t, 10, snap.Sources[0].RecordsFound)
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
