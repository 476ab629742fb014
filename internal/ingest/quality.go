package ingest

import (
	"regexp"
	"time"
)

// DefaultQualityThreshold is the validity cutoff for ingested records.
const DefaultQualityThreshold = 0.7

// Scorer assigns a quality score in [0,1] to each ingested record. The score
// is persisted with the audit row either way; only records strictly above the
// threshold are promoted to the trusted entity store.
type Scorer struct {
	Threshold float64
}

func NewScorer(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	return &Scorer{Threshold: threshold}
}

// Valid reports whether a score clears the threshold.
func (s *Scorer) Valid(score float64) bool {
	return score > s.Threshold
}

// Score rates completeness and plausibility per source schema. Opaque
// records always score zero.
func (s *Scorer) Score(p Payload) float64 {
	var score float64
	switch p.Kind {
	case KindTariff:
		score = scoreTariff(p)
	case KindAuction:
		score = scoreAuction(p)
	case KindRegulation:
		score = scoreRegulation(p)
	default:
		return 0
	}
	return clamp01(score)
}

var tariffCodeRe = regexp.MustCompile(`^\d{4}(\.\d{1,4})*$`)

func scoreTariff(p Payload) float64 {
	tc := p.Tariff
	if tc == nil {
		return 0
	}
	var score float64
	if tariffCodeRe.MatchString(tc.Code) {
		score += 0.40
	}
	if len(tc.Description) >= 10 {
		score += 0.20
	} else if tc.Description != "" {
		score += 0.10
	}
	if tc.BaseRateText != "" && tc.RatePercent >= 0 && tc.RatePercent <= 100 {
		score += 0.20
	}
	if tc.VehicleCategory != "" && tc.VehicleCategory != "other" {
		score += 0.10
	}
	if tc.EngineCategory != "" && tc.EngineCategory != "unspecified" {
		score += 0.10
	}
	return score
}

var vinRe = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

func scoreAuction(p Payload) float64 {
	al := p.Auction
	if al == nil {
		return 0
	}
	var score float64
	if al.LotNumber != "" {
		score += 0.30
	}
	if al.Make != "" && al.Model != "" {
		score += 0.20
	}
	currentYear := time.Now().Year()
	if al.Year >= 1900 && al.Year <= currentYear+2 {
		score += 0.20
	}
	if vinRe.MatchString(al.VIN) {
		score += 0.20
	}
	if al.CurrentBid >= 0 && al.CurrentBid < 10_000_000 {
		score += 0.10
	}
	return score
}

func scoreRegulation(p Payload) float64 {
	rr := p.Regulation
	if rr == nil {
		return 0
	}
	var score float64
	if rr.Title != "" {
		score += 0.30
	}
	if len(rr.Summary) >= 20 {
		score += 0.20
	} else if rr.Summary != "" {
		score += 0.10
	}
	if rr.Authority != "" {
		score += 0.20
	}
	if rr.Country != "" {
		score += 0.20
	}
	if rr.MinVehicleAge > 0 {
		score += 0.10
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
