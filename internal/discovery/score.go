package discovery

import (
	"strings"

	"github.com/importiq/importiq-cli/pkg/places"
)

// DefaultSuitabilityCutoff is the minimum score for a place to be proposed.
const DefaultSuitabilityCutoff = 0.6

// relevantCategoryTerms mark a place category as plausibly in the vehicle
// compliance trade.
var relevantCategoryTerms = []string{
	"auto", "car", "vehicle", "mechanic", "workshop", "garage",
	"engineering", "inspection", "compliance", "modification",
}

// SuitabilityScore rates a directory listing as a potential provider. Each
// dimension contributes a fixed share: rating tier 0.30, review volume 0.20,
// operational status 0.20, contact channels 0.15, category relevance 0.15.
// The result is in [0, 1].
func SuitabilityScore(s places.Summary) float64 {
	var score float64

	switch {
	case s.Rating >= 4.5:
		score += 0.30
	case s.Rating >= 4.0:
		score += 0.25
	case s.Rating >= 3.5:
		score += 0.15
	case s.Rating >= 3.0:
		score += 0.08
	}

	switch {
	case s.ReviewCount >= 100:
		score += 0.20
	case s.ReviewCount >= 25:
		score += 0.15
	case s.ReviewCount >= 5:
		score += 0.08
	}

	if s.Operational {
		score += 0.20
	}

	if s.Phone != "" {
		score += 0.10
	}
	if s.Website != "" {
		score += 0.05
	}

	category := strings.ToLower(s.Category)
	for _, term := range relevantCategoryTerms {
		if strings.Contains(category, term) {
			score += 0.15
			break
		}
	}
	return score
}
