package match

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/routing"
)

const (
	enhanceTimeout     = 5 * time.Second
	enhanceConcurrency = 4
)

// Engine answers proximity queries: spatial range query, capacity estimate,
// confidence scoring, then best-effort route enhancement for the top
// candidates. An empty result list is a valid outcome, never an error.
type Engine struct {
	store  store.Store
	router routing.Client
	policy CapacityPolicy
	topN   int
}

// NewEngine builds a matching engine. A nil router disables enhancement;
// every result then carries only the straight-line estimate.
func NewEngine(st store.Store, router routing.Client, policy CapacityPolicy, topN int) *Engine {
	if topN <= 0 {
		topN = 5
	}
	return &Engine{store: st, router: router, policy: policy, topN: topN}
}

// FindProvidersNear returns ranked candidates for a customer query. Results
// keep the tier-then-distance order of the range query; the confidence score
// rides along as a field so callers can re-rank if they choose.
func (e *Engine) FindProvidersNear(ctx context.Context, q model.ProximityQuery) ([]model.ProximityResult, error) {
	log := zap.L().With(zap.String("component", "match.engine"))
	monitoring.ProximityQueries.WithLabelValues(string(q.Urgency)).Inc()

	snap, err := BuildSnapshot(ctx, e.store)
	if err != nil {
		return nil, err
	}
	candidates := snap.RangeQuery(q)
	if len(candidates) == 0 {
		return []model.ProximityResult{}, nil
	}

	now := time.Now().UTC()
	results := make([]model.ProximityResult, 0, len(candidates))
	for _, c := range candidates {
		capacity := e.policy.DefaultPercent
		avail, err := e.store.GetAvailability(ctx, c.Provider.ID)
		if err != nil {
			log.Warn("availability lookup failed, using default capacity",
				zap.String("provider_id", c.Provider.ID),
				zap.Error(err),
			)
		} else {
			capacity = e.policy.Estimate(avail, now)
		}

		results = append(results, model.ProximityResult{
			ProviderID:      c.Provider.ID,
			Name:            c.Provider.Name,
			Tier:            c.Provider.Tier,
			DistanceKm:      c.DistanceKm,
			ConfidenceScore: ConfidenceScore(&c.Provider, c.DistanceKm, capacity),
			EstimatedCost:   estimateCost(c.Provider.Pricing, c.DistanceKm),
		})
	}

	if e.router != nil {
		e.enhance(ctx, q, candidates, results)
	}
	return results, nil
}

// enhance replaces straight-line estimates with live routes for the top
// candidates. A failed or timed-out call leaves that candidate's Enhanced
// field nil; it is dropped from the enhanced set, never silently downgraded.
func (e *Engine) enhance(ctx context.Context, q model.ProximityQuery, candidates []Candidate, results []model.ProximityResult) {
	log := zap.L().With(zap.String("component", "match.engine"))
	origin := routing.Point{Lat: q.Latitude, Lng: q.Longitude}

	n := e.topN
	if n > len(candidates) {
		n = len(candidates)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enhanceConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			dest := routing.Point{Lat: candidates[i].Provider.Latitude, Lng: candidates[i].Provider.Longitude}

			callCtx, cancel := context.WithTimeout(gctx, enhanceTimeout)
			route, err := e.router.Route(callCtx, origin, dest)
			cancel()
			if err != nil {
				monitoring.EnhancementDrops.Inc()
				log.Warn("route enhancement failed, dropping candidate from enhanced set",
					zap.String("provider_id", candidates[i].Provider.ID),
					zap.Error(err),
				)
				return nil
			}

			results[i].Enhanced = &model.RouteInfo{
				DriveTimeMinutes: route.DurationMinutes,
				FreeFlowMinutes:  route.FreeFlowMinutes,
				DistanceKm:       route.DistanceKm,
				Geometry:         route.Geometry,
				Traffic:          model.ClassifyTraffic(route.FreeFlowMinutes, route.DurationMinutes),
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}

// estimateCost is a coarse pre-quote figure: a pricing-tier base plus a
// per-kilometer travel component.
func estimateCost(tier model.PricingTier, distanceKm float64) float64 {
	base := 250.0
	switch tier {
	case model.PricingBudget:
		base = 150
	case model.PricingPremium:
		base = 400
	}
	return base + distanceKm*2
}
