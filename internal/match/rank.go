package match

import "github.com/importiq/importiq-cli/internal/model"

// Ranking weights. These six terms and their clamp behavior are a public
// contract: changing any of them changes the ranking output callers see.
const (
	weightTrust        = 0.25
	weightRating       = 0.20
	weightTier         = 0.15
	weightDistance     = 0.15
	weightCapacity     = 0.15
	weightResponseTime = 0.10

	distanceCeilingKm  = 50.0
	responseCeilingMin = 120.0
)

// ConfidenceScore folds trust, rating, partnership tier, distance, capacity,
// and responsiveness into one score in [0,1]. Each term clamps at zero, so a
// provider 80 km out contributes nothing on distance rather than a penalty.
func ConfidenceScore(p *model.ServiceProvider, distanceKm float64, capacityPercent int) float64 {
	score := weightTrust*(p.TrustScore/5) +
		weightRating*(p.Rating/5) +
		weightTier*p.Tier.Weight() +
		weightDistance*clampTerm((distanceCeilingKm-distanceKm)/distanceCeilingKm) +
		weightCapacity*clampTerm(float64(capacityPercent)/100) +
		weightResponseTime*clampTerm((responseCeilingMin-float64(p.ResponseTimeMin))/responseCeilingMin)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func clampTerm(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
