package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/store"
)

// Advance moves a candidate to the next verification state and persists the
// change. Illegal transitions are rejected before touching the store. When a
// candidate reaches verified it is registered as a provider; rejection is
// terminal and leaves the directory untouched.
func Advance(ctx context.Context, st store.Store, c *model.DiscoveryCandidate, next model.CandidateState) error {
	if !c.State.CanTransition(next) {
		return eris.Errorf("discovery: illegal transition %s -> %s for candidate %s", c.State, next, c.ID)
	}
	if err := st.UpdateCandidateState(ctx, c.ID, next); err != nil {
		return err
	}
	c.State = next

	if next != model.CandidateVerified {
		return nil
	}
	p := providerFromCandidate(c)
	if err := st.UpsertProvider(ctx, p); err != nil {
		return eris.Wrap(err, "discovery: register verified candidate")
	}
	zap.L().With(zap.String("component", "discovery")).Info("candidate verified and registered",
		zap.String("candidate_id", c.ID),
		zap.String("provider_id", p.ID),
	)
	return nil
}

// providerFromCandidate maps a verified candidate onto a new provider entry.
// Discovered providers start on the provisional tier with no trust history;
// ranking weights keep them below established partners until re-verified.
func providerFromCandidate(c *model.DiscoveryCandidate) *model.ServiceProvider {
	return &model.ServiceProvider{
		Name:         c.Name,
		Address:      c.Address,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		Rating:       c.Rating,
		TrustScore:   0,
		Tier:         model.TierProvisional,
		Pricing:      model.PricingStandard,
		Phone:        c.Phone,
		Website:      c.Website,
		Verification: model.VerificationVerified,
		Active:       true,
	}
}
