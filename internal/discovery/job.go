package discovery

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/store"
	"github.com/importiq/importiq-cli/pkg/places"
)

// Report summarizes one discovery run.
type Report struct {
	TermsSearched int
	PlacesSeen    int
	Proposed      int
	Duplicates    int
	BelowCutoff   int
	Errors        []string
}

// Job searches the place directory for unregistered providers, scores each
// result for suitability, and proposes the ones above the cutoff. Proposals
// go to a human-verification queue; the job never creates a provider itself.
// Re-running is safe: dedup by (name, address) identity makes every effect
// idempotent or additive.
type Job struct {
	store      store.Store
	places     places.Client
	limiter    *rate.Limiter
	queryTerms []string
	radiusKm   float64
	cutoff     float64
}

// NewJob builds a discovery job. An empty term list or non-positive cutoff
// falls back to defaults.
func NewJob(st store.Store, pc places.Client, terms []string, radiusKm, cutoff, ratePerSecond float64) *Job {
	if len(terms) == 0 {
		terms = []string{"vehicle import compliance workshop"}
	}
	if radiusKm <= 0 {
		radiusKm = 50
	}
	if cutoff <= 0 {
		cutoff = DefaultSuitabilityCutoff
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &Job{
		store:      st,
		places:     pc,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		queryTerms: terms,
		radiusKm:   radiusKm,
		cutoff:     cutoff,
	}
}

// Run executes one discovery pass around the given center. A failing query
// term is recorded and skipped; the remaining terms still run.
func (j *Job) Run(ctx context.Context, center geo.Point) (Report, error) {
	log := zap.L().With(zap.String("component", "discovery"))
	var rep Report

	for _, term := range j.queryTerms {
		if err := j.limiter.Wait(ctx); err != nil {
			return rep, err
		}
		results, err := j.places.TextSearch(ctx, places.SearchRequest{
			Query:    term,
			Lat:      center.Lat,
			Lng:      center.Lng,
			RadiusKm: j.radiusKm,
		})
		if err != nil {
			log.Warn("place search failed, skipping term",
				zap.String("term", term),
				zap.Error(err),
			)
			rep.Errors = append(rep.Errors, err.Error())
			continue
		}
		rep.TermsSearched++
		rep.PlacesSeen += len(results)

		for _, s := range results {
			j.propose(ctx, log, term, s, &rep)
		}
	}

	log.Info("discovery run complete",
		zap.Int("terms", rep.TermsSearched),
		zap.Int("seen", rep.PlacesSeen),
		zap.Int("proposed", rep.Proposed),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("below_cutoff", rep.BelowCutoff),
	)
	return rep, nil
}

func (j *Job) propose(ctx context.Context, log *zap.Logger, term string, s places.Summary, rep *Report) {
	score := SuitabilityScore(s)
	if score <= j.cutoff {
		monitoring.DiscoveryCandidates.WithLabelValues("below_cutoff").Inc()
		rep.BelowCutoff++
		return
	}

	c := &model.DiscoveryCandidate{
		DedupKey:    DedupKey(s.Name, s.Address),
		Name:        s.Name,
		Address:     s.Address,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Rating:      s.Rating,
		ReviewCount: s.ReviewCount,
		Operational: s.Operational,
		Phone:       s.Phone,
		Website:     s.Website,
		Category:    s.Category,
		Suitability: score,
		State:       model.CandidateProposed,
		SourceTerm:  term,
	}
	inserted, err := j.store.InsertCandidate(ctx, c)
	if err != nil {
		log.Warn("candidate insert failed",
			zap.String("name", s.Name),
			zap.Error(err),
		)
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	if !inserted {
		monitoring.DiscoveryCandidates.WithLabelValues("duplicate").Inc()
		rep.Duplicates++
		return
	}
	monitoring.DiscoveryCandidates.WithLabelValues("proposed").Inc()
	rep.Proposed++
}
