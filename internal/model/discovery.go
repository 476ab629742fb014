package model

import "time"

// CandidateState tracks a discovered provider through human verification.
// Transitions: proposed -> pending_verification -> verified | rejected.
// Only verified candidates become providers eligible for proximity queries.
type CandidateState string

const (
	CandidateProposed CandidateState = "proposed"
	CandidatePending  CandidateState = "pending_verification"
	CandidateVerified CandidateState = "verified"
	CandidateRejected CandidateState = "rejected"
)

// CanTransition reports whether moving to next is a legal state change.
func (s CandidateState) CanTransition(next CandidateState) bool {
	switch s {
	case CandidateProposed:
		return next == CandidatePending
	case CandidatePending:
		return next == CandidateVerified || next == CandidateRejected
	default:
		return false
	}
}

// DiscoveryCandidate is an unregistered provider found by the discovery job.
// DedupKey is the case-folded (name, address) identity.
type DiscoveryCandidate struct {
	ID          string         `json:"id" db:"id"`
	DedupKey    string         `json:"dedup_key" db:"dedup_key"`
	Name        string         `json:"name" db:"name"`
	Address     string         `json:"address" db:"address"`
	Latitude    float64        `json:"latitude" db:"latitude"`
	Longitude   float64        `json:"longitude" db:"longitude"`
	Rating      float64        `json:"rating" db:"rating"`
	ReviewCount int            `json:"review_count" db:"review_count"`
	Operational bool           `json:"operational" db:"operational"`
	Phone       string         `json:"phone,omitempty" db:"phone"`
	Website     string         `json:"website,omitempty" db:"website"`
	Category    string         `json:"category,omitempty" db:"category"`
	Suitability float64        `json:"suitability" db:"suitability"`
	State       CandidateState `json:"state" db:"state"`
	SourceTerm  string         `json:"source_term,omitempty" db:"source_term"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
