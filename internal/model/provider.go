// Package model defines the domain types shared across the ingestion and
// matching subsystems.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PartnershipTier classifies the business relationship with a provider.
// Tier ordering is a ranking contract: preferred > standard > provisional > none.
type PartnershipTier string

const (
	TierPreferred   PartnershipTier = "preferred"
	TierStandard    PartnershipTier = "standard"
	TierProvisional PartnershipTier = "provisional"
	TierNone        PartnershipTier = "none"
)

// Rank returns the sort rank of the tier, lower is better.
func (t PartnershipTier) Rank() int {
	switch t {
	case TierPreferred:
		return 0
	case TierStandard:
		return 1
	case TierProvisional:
		return 2
	default:
		return 3
	}
}

// Weight returns the ranking-formula weight for the tier.
func (t PartnershipTier) Weight() float64 {
	switch t {
	case TierPreferred:
		return 1.0
	case TierStandard:
		return 0.8
	case TierProvisional:
		return 0.6
	default:
		return 0.4
	}
}

// ParsePartnershipTier converts a string into a PartnershipTier.
func ParsePartnershipTier(s string) (PartnershipTier, error) {
	switch strings.ToLower(s) {
	case "preferred":
		return TierPreferred, nil
	case "standard":
		return TierStandard, nil
	case "provisional":
		return TierProvisional, nil
	case "none", "":
		return TierNone, nil
	default:
		return "", eris.Errorf("model: unknown partnership tier %q", s)
	}
}

// PricingTier classifies a provider's price positioning.
type PricingTier string

const (
	PricingBudget   PricingTier = "budget"
	PricingStandard PricingTier = "standard"
	PricingPremium  PricingTier = "premium"
)

// VerificationStatus tracks the human-verification lifecycle of a provider.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
)

// ServiceProvider is a modification or compliance shop in the directory.
// Providers are never hard-deleted, only deactivated.
type ServiceProvider struct {
	ID               string             `json:"id" db:"id"`
	Name             string             `json:"name" db:"name"`
	Latitude         float64            `json:"latitude" db:"latitude"`
	Longitude        float64            `json:"longitude" db:"longitude"`
	Specializations  []string           `json:"specializations" db:"specializations"`
	Rating           float64            `json:"rating" db:"rating"`
	TrustScore       float64            `json:"trust_score" db:"trust_score"`
	Tier             PartnershipTier    `json:"partnership_tier" db:"partnership_tier"`
	Pricing          PricingTier        `json:"pricing_tier" db:"pricing_tier"`
	ResponseTimeMin  int                `json:"response_time_min" db:"response_time_min"`
	EmergencyService bool               `json:"emergency_service" db:"emergency_service"`
	Verification     VerificationStatus `json:"verification" db:"verification"`
	Active           bool               `json:"active" db:"active"`
	ServiceAreaWKT   string             `json:"service_area_wkt,omitempty" db:"service_area_wkt"`
	Address          string             `json:"address,omitempty" db:"address"`
	Phone            string             `json:"phone,omitempty" db:"phone"`
	Website          string             `json:"website,omitempty" db:"website"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// HasAnySpecialization reports whether the provider covers at least one of the
// required service tags. An empty requirement matches every provider.
func (p *ServiceProvider) HasAnySpecialization(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range p.Specializations {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// DayStatus describes a provider's operational state for a given day.
type DayStatus string

const (
	DayOpen        DayStatus = "open"
	DayClosingSoon DayStatus = "closing_soon"
	DayClosed      DayStatus = "closed"
	DayBusy        DayStatus = "busy"
	DayUnknown     DayStatus = "unknown"
)

// ParseDayStatus converts the wire/CLI form of a day status.
func ParseDayStatus(s string) (DayStatus, error) {
	switch strings.ToLower(s) {
	case "open":
		return DayOpen, nil
	case "closing_soon":
		return DayClosingSoon, nil
	case "closed":
		return DayClosed, nil
	case "busy":
		return DayBusy, nil
	case "unknown", "":
		return DayUnknown, nil
	default:
		return "", eris.Errorf("model: unknown day status %q", s)
	}
}

// ParseWeekday accepts the English day name, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, eris.Errorf("model: unknown weekday %q", s)
}

// AvailabilitySnapshot caches a provider's capacity for one weekday. It is
// overwritten on each refresh cycle and carries no history; it must never be
// treated as authoritative for auditing.
type AvailabilitySnapshot struct {
	ProviderID      string       `json:"provider_id" db:"provider_id"`
	DayOfWeek       time.Weekday `json:"day_of_week" db:"day_of_week"`
	CapacityPercent int          `json:"capacity_percent" db:"capacity_percent"`
	Status          DayStatus    `json:"status" db:"status"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}
