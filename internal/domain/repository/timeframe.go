package repository

import (
	"strings"

	"FinBoard/internal/domain/models"
)

// IsValidInterval returns true if i is a supported time series interval.
func IsValidInterval(i models.TimeInterval) bool {
	switch i {
	case models.IntervalDaily, models.IntervalWeekly, models.IntervalMonthly:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default interval.
func DefaultInterval() models.TimeInterval { return models.IntervalDaily }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) models.TimeInterval {
	if s == "" {
		return DefaultInterval()
	}
	i := models.TimeInterval(strings.ToLower(s))
	if IsValidInterval(i) {
		return i
	}
	return DefaultInterval()
}

// IntervalDays is the calendar step between two points of interval.
func IntervalDays(i models.TimeInterval) int {
	switch i {
	case models.IntervalWeekly:
		return 7
	case models.IntervalMonthly:
		return 30
	default:
		return 1
	}
}

// IntervalPoints is the number of synthesized points for interval.
func IntervalPoints(i models.TimeInterval) int {
	switch i {
	case models.IntervalWeekly:
		return 52
	case models.IntervalMonthly:
		return 24
	default:
		return 30
	}
}
