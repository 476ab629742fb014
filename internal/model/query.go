package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Urgency classifies how quickly the customer needs service.
type Urgency string

const (
	UrgencyStandard  Urgency = "standard"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// ParseUrgency converts a string into an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(s) {
	case "standard", "":
		return UrgencyStandard, nil
	case "urgent":
		return UrgencyUrgent, nil
	case "emergency":
		return UrgencyEmergency, nil
	default:
		return "", eris.Errorf("model: unknown urgency %q", s)
	}
}

// TrafficSeverity classifies the delay between free-flow and live travel time.
type TrafficSeverity string

const (
	TrafficLight    TrafficSeverity = "light"
	TrafficModerate TrafficSeverity = "moderate"
	TrafficHeavy    TrafficSeverity = "heavy"
	TrafficSevere   TrafficSeverity = "severe"
)

// ClassifyTraffic buckets the relative delay between free-flow and live
// travel time. Delays under 10% are light, under 30% moderate, under 50%
// heavy, anything beyond severe. A non-positive free-flow time reads as no
// delay signal and classifies light.
func ClassifyTraffic(freeFlowMinutes, liveMinutes float64) TrafficSeverity {
	if freeFlowMinutes <= 0 {
		return TrafficLight
	}
	delay := (liveMinutes - freeFlowMinutes) / freeFlowMinutes
	switch {
	case delay < 0.10:
		return TrafficLight
	case delay < 0.30:
		return TrafficModerate
	case delay < 0.50:
		return TrafficHeavy
	default:
		return TrafficSevere
	}
}

// ProximityQuery describes one customer lookup. It is never persisted.
type ProximityQuery struct {
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	VehicleType      string   `json:"vehicle_type,omitempty"`
	RequiredServices []string `json:"required_services,omitempty"`
	MaxRadiusKm      float64  `json:"max_radius_km"`
	Urgency          Urgency  `json:"urgency"`
}

// RouteInfo holds confirmed travel data from the routing service. Its absence
// on a result means only the straight-line estimate is available.
type RouteInfo struct {
	DriveTimeMinutes float64         `json:"drive_time_minutes"`
	FreeFlowMinutes  float64         `json:"free_flow_minutes"`
	DistanceKm       float64         `json:"distance_km"`
	Geometry         string          `json:"geometry,omitempty"`
	Traffic          TrafficSeverity `json:"traffic"`
}

// ProximityResult is one ranked candidate returned to the caller.
// Enhanced is nil when the route lookup was skipped or failed; callers must
// not present DistanceKm-derived estimates as live travel times.
type ProximityResult struct {
	ProviderID      string          `json:"provider_id"`
	Name            string          `json:"name"`
	Tier            PartnershipTier `json:"partnership_tier"`
	DistanceKm      float64         `json:"distance_km"`
	ConfidenceScore float64         `json:"confidence_score"`
	EstimatedCost   float64         `json:"estimated_cost,omitempty"`
	Enhanced        *RouteInfo      `json:"enhanced,omitempty"`
}
