package monitoring

import (
	"context"
	"time"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

// SourceHealth reports one source's recent ingestion health.
type SourceHealth struct {
	Source         string    `json:"source"`
	Runs           int       `json:"runs"`
	RecordsFound   int       `json:"records_found"`
	RecordsLoaded  int       `json:"records_loaded"`
	AvgSuccessRate float64   `json:"avg_success_rate"`
	LastRun        time.Time `json:"last_run"`
	LastErrors     []string  `json:"last_errors,omitempty"`
	Stale          bool      `json:"stale"`
}

// StatsSnapshot is the ingestion overview served by the stats endpoint.
type StatsSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Sources     []SourceHealth `json:"sources"`
}

// staleAfter marks a source stale when its last run is older than this.
const staleAfter = 48 * time.Hour

// Collector assembles ingestion statistics from the run-metrics time series.
type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Snapshot aggregates per-source counts, success rates, and the error list
// of the most recent run.
func (c *Collector) Snapshot(ctx context.Context) (*StatsSnapshot, error) {
	stats, err := c.store.SourceStats(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snap := &StatsSnapshot{GeneratedAt: now, Sources: make([]SourceHealth, 0, len(stats))}
	for _, s := range stats {
		h := SourceHealth{
			Source:         s.Source,
			Runs:           s.Runs,
			RecordsFound:   s.RecordsFound,
			RecordsLoaded:  s.RecordsLoaded,
			AvgSuccessRate: s.AvgSuccessRate,
			LastRun:        s.LastRun,
			Stale:          now.Sub(s.LastRun) > staleAfter,
		}
		if last := c.lastRun(ctx, s.Source); last != nil {
			h.LastErrors = last.Errors
		}
		snap.Sources = append(snap.Sources, h)
	}
	return snap, nil
}

// StaleSources returns every source whose most recent run is older than the
// staleness window. The scheduler's health tick polls this.
func (c *Collector) StaleSources(ctx context.Context) ([]SourceHealth, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var stale []SourceHealth
	for _, s := range snap.Sources {
		if s.Stale {
			stale = append(stale, s)
		}
	}
	return stale, nil
}

// lastRun is best-effort; a metrics read failure must not sink the snapshot.
func (c *Collector) lastRun(ctx context.Context, source string) *model.IngestionRunMetrics {
	runs, err := c.store.ListRunMetrics(ctx, source, 1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	return &runs[0]
}
