// Package cluster aggregates the provider directory and the discovery queue
// into per-region market summaries.
package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

// gridDegrees is the side length of one analysis cell. Half a degree is
// roughly 50 km at mid latitudes, matching the default query radius.
const gridDegrees = 0.5

// coreServices are the specialization tags a healthy region is expected to
// cover. Missing tags are reported as service gaps.
var coreServices = []string{
	"compliance",
	"inspection",
	"modification",
	"electrical",
	"mechanical",
}

// Analyzer recomputes market clusters from the current directory state.
// Results replace the previous run wholesale; clusters are a snapshot, not
// a history.
type Analyzer struct {
	store store.Store
}

func NewAnalyzer(st store.Store) *Analyzer {
	return &Analyzer{store: st}
}

// Run groups active providers and open discovery candidates into grid cells,
// classifies each cell's competitor density, derives service gaps and
// expansion opportunities, and stores the result.
func (a *Analyzer) Run(ctx context.Context) ([]model.MarketCluster, error) {
	log := zap.L().With(zap.String("component", "cluster"))

	providers, err := a.store.ListActiveProviders(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := a.store.ListCandidates(ctx, store.CandidateFilter{
		State: model.CandidateProposed,
		Limit: 1000,
	})
	if err != nil {
		return nil, err
	}

	cells := make(map[string]*cellStats)
	for _, p := range providers {
		c := cellFor(cells, p.Latitude, p.Longitude)
		c.providers = append(c.providers, p)
	}
	for _, dc := range candidates {
		cellFor(cells, dc.Latitude, dc.Longitude).candidates++
	}

	now := time.Now().UTC()
	clusters := make([]model.MarketCluster, 0, len(cells))
	for region, c := range cells {
		clusters = append(clusters, model.MarketCluster{
			Region:        region,
			Density:       classifyDensity(len(c.providers)),
			ProviderCount: len(c.providers),
			ServiceGaps:   serviceGaps(c.providers),
			Opportunities: opportunities(c),
			AnalyzedAt:    now,
		})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Region < clusters[j].Region })

	if err := a.store.ReplaceMarketClusters(ctx, clusters); err != nil {
		return nil, err
	}
	log.Info("market analysis complete",
		zap.Int("regions", len(clusters)),
		zap.Int("providers", len(providers)),
		zap.Int("open_candidates", len(candidates)),
	)
	return clusters, nil
}

type cellStats struct {
	providers  []model.ServiceProvider
	candidates int
}

func cellFor(cells map[string]*cellStats, lat, lng float64) *cellStats {
	key := RegionKey(lat, lng)
	c, ok := cells[key]
	if !ok {
		c = &cellStats{}
		cells[key] = c
	}
	return c
}

// RegionKey snaps a coordinate to its grid cell identifier, e.g.
// "-34.0:151.0" for Sydney with a half-degree grid.
func RegionKey(lat, lng float64) string {
	snap := func(v float64) float64 {
		return math.Floor(v/gridDegrees) * gridDegrees
	}
	return fmt.Sprintf("%.1f:%.1f", snap(lat), snap(lng))
}

func classifyDensity(providerCount int) model.DensityClass {
	switch {
	case providerCount <= 2:
		return model.DensitySparse
	case providerCount <= 8:
		return model.DensityBalanced
	default:
		return model.DensitySaturated
	}
}

// serviceGaps lists the core service tags no provider in the cell covers.
func serviceGaps(providers []model.ServiceProvider) []string {
	covered := make(map[string]bool)
	for _, p := range providers {
		for _, s := range p.Specializations {
			covered[s] = true
		}
	}
	var gaps []string
	for _, s := range coreServices {
		if !covered[s] {
			gaps = append(gaps, s)
		}
	}
	return gaps
}

func opportunities(c *cellStats) []string {
	var out []string
	if len(c.providers) <= 2 {
		out = append(out, "underserved region, few active providers")
	}
	if c.candidates > 0 {
		out = append(out, fmt.Sprintf("%d unverified candidates awaiting review", c.candidates))
	}
	hasEmergency := false
	for _, p := range c.providers {
		if p.EmergencyService {
			hasEmergency = true
			break
		}
	}
	if len(c.providers) > 0 && !hasEmergency {
		out = append(out, "no emergency-capable provider in region")
	}
	return out
}
