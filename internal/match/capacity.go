package match

import (
	"time"

	"github.com/importiq/importiq-cli/internal/model"
)

// CapacityPolicy maps an availability snapshot to an estimated capacity
// percent for scoring. The numbers are a placeholder heuristic with no
// empirical basis, which is why they are configuration instead of constants.
type CapacityPolicy struct {
	DefaultPercent int
	ClosedPercent  int
	BusyPercent    int
}

// DefaultCapacityPolicy mirrors the shipped configuration defaults.
func DefaultCapacityPolicy() CapacityPolicy {
	return CapacityPolicy{DefaultPercent: 70, ClosedPercent: 0, BusyPercent: 25}
}

// Estimate picks today's capacity from a provider's weekday snapshots. A
// missing or unknown snapshot falls back to the default percent.
func (p CapacityPolicy) Estimate(snaps []model.AvailabilitySnapshot, now time.Time) int {
	day := now.Weekday()
	for _, s := range snaps {
		if s.DayOfWeek != day {
			continue
		}
		switch s.Status {
		case model.DayClosed:
			return p.ClosedPercent
		case model.DayBusy:
			return p.BusyPercent
		case model.DayOpen, model.DayClosingSoon:
			return clampPercent(s.CapacityPercent)
		default:
			return p.DefaultPercent
		}
	}
	return p.DefaultPercent
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
