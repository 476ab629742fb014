package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requirementTableHTML = `<html><body>
<table>
<tr><th>Requirement</th><th>Details</th></tr>
<tr><td>25-Year Import Rule</td><td>Vehicles at least 25 years old are exempt from FMVSS compliance requirements.</td></tr>
<tr><td>Emissions Certification</td><td>Imported vehicles must meet EPA emissions standards or qualify for an exemption.</td></tr>
<tr><td></td><td>orphan details cell</td></tr>
</table>
</body></html>`

func TestRegulationAdapter_ParsesRequirementTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(requirementTableHTML)) //nolint:errcheck
	}))
	defer srv.Close()

	cfg := SourceConfig{URL: srv.URL, Country: "US", Authority: "NHTSA"}
	a := NewRegulationAdapter("nhtsa_import", cfg, NewFetcher())
	items, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "header and empty-title rows are skipped")

	first := items[0].Payload.Regulation
	require.NotNil(t, first)
	assert.Equal(t, "us/nhtsa/25-year-import-rule", first.Key)
	assert.Equal(t, "NHTSA", first.Authority)
	assert.Equal(t, 25, first.MinVehicleAge)

	second := items[1].Payload.Regulation
	assert.Equal(t, "Emissions Certification", second.Title)
	assert.Zero(t, second.MinVehicleAge)
}

func TestRequirementKey(t *testing.T) {
	assert.Equal(t, "us/nhtsa/25-year-import-rule", requirementKey("US", "NHTSA", "25-Year Import Rule"))
	assert.Equal(t, "au/dit/left-hand-drive", requirementKey("AU", "DIT", "  Left-Hand Drive!  "))
}
