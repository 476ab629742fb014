package match

import (
	"context"
	"sort"

	"github.com/importiq/importiq-cli/internal/geo"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

// DefaultRadiusKm applies when a query does not set a radius.
const DefaultRadiusKm = 50

// Candidate is one provider inside the queried range, with its straight-line
// distance from the customer.
type Candidate struct {
	Provider   model.ServiceProvider
	DistanceKm float64
}

// Snapshot is an in-memory view of the active, verified providers. It is
// rebuilt per query; it must never be treated as fresher than the store.
type Snapshot struct {
	providers []model.ServiceProvider
}

// BuildSnapshot loads the current provider set from the store.
func BuildSnapshot(ctx context.Context, st store.Store) (*Snapshot, error) {
	providers, err := st.ListActiveProviders(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{providers: providers}, nil
}

// RangeQuery returns all providers within the query radius, filtered by
// required-service overlap and, for emergency queries, by the emergency
// flag. Results order by partnership tier, then ascending distance. The
// tier-first ordering is a business tie-break and part of the contract.
func (s *Snapshot) RangeQuery(q model.ProximityQuery) []Candidate {
	radius := q.MaxRadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}
	origin := geo.Point{Lat: q.Latitude, Lng: q.Longitude}

	var out []Candidate
	for _, p := range s.providers {
		if q.Urgency == model.UrgencyEmergency && !p.EmergencyService {
			continue
		}
		if !p.HasAnySpecialization(q.RequiredServices) {
			continue
		}
		dist := geo.HaversineKm(origin, geo.Point{Lat: p.Latitude, Lng: p.Longitude})
		if dist > radius {
			continue
		}
		out = append(out, Candidate{Provider: p, DistanceKm: dist})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Provider.Tier.Rank(), out[j].Provider.Tier.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}
