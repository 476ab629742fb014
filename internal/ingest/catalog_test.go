package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
sources:
  - source: hts_tariff
    type: tariff
    priority: 1
    timeout_secs: 60
    url: https://example.gov/chapter/8703
    workbook_url: https://example.gov/revision.xlsx
    code_prefix: "8703"
  - source: copart
    type: auction
    priority: 2
    cron: "30 */6 * * *"
    url: https://example.com/lots.json
  - source: nhtsa_import
    type: regulation
    priority: 3
    url: https://example.gov/importation
    country: US
    authority: NHTSA
`

func TestParseCatalog(t *testing.T) {
	jobs, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "hts_tariff", jobs[0].Source)
	assert.Equal(t, KindTariff, jobs[0].Kind)
	assert.Equal(t, 60*time.Second, jobs[0].Timeout)
	assert.Equal(t, "https://example.gov/revision.xlsx", jobs[0].Config.WorkbookURL)

	assert.Equal(t, 30*time.Second, jobs[1].Timeout, "timeout defaults when unset")
	assert.Equal(t, "30 */6 * * *", jobs[1].Cron)
	assert.Empty(t, jobs[0].Cron, "cron is optional")
	assert.Equal(t, "NHTSA", jobs[2].Config.Authority)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", `sources: []`, "no sources"},
		{"unknown type", "sources:\n  - source: x\n    type: widgets\n    url: https://x", "unknown type"},
		{"missing url", "sources:\n  - source: x\n    type: tariff", "missing url"},
		{"bad cron", "sources:\n  - source: x\n    type: tariff\n    url: https://x\n    cron: 'every day'", "invalid cron"},
		{"duplicate", "sources:\n  - source: x\n    type: tariff\n    url: https://x\n  - source: x\n    type: auction\n    url: https://y", "duplicate"},
		{"not yaml", `{{{`, "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
