package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Run from a temp dir so no stray config.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Ingest.CooldownSecs)
	assert.InDelta(t, 0.7, cfg.Ingest.QualityThreshold, 1e-9)
	assert.Equal(t, 25, cfg.Routing.BatchSize)
	assert.Equal(t, 5, cfg.Match.EnhanceTopN)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule.Health)
	assert.NotEmpty(t, cfg.Discovery.QueryTerms)
	assert.Equal(t, 12, cfg.ServiceArea.Angles)
}

func TestLoadFromFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })

	dir := t.TempDir()
	yaml := `
store:
  driver: sqlite
  database_url: importiq.db
ingest:
  cooldown_secs: 1
  quality_threshold: 0.8
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	require.NoError(t, os.Chdir(dir))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "importiq.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 1, cfg.Ingest.CooldownSecs)
	assert.InDelta(t, 0.8, cfg.Ingest.QualityThreshold, 1e-9)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched keys keep defaults.
	assert.Equal(t, 30, cfg.Ingest.TimeoutSecs)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
