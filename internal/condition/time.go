package condition

import (
	"strconv"
	"strings"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// evaluateTime checks the time condition against the current instant.
// The result is the conjunction of the time-of-day check and the
// day-of-week check.
func (e *Evaluator) evaluateTime(tc *types.TimeCondition, now time.Time) bool {
	return e.isCurrentTimeAllowed(tc, now) && e.isCurrentDayAllowed(tc, now)
}

// isCurrentTimeAllowed applies deny-then-allow precedence over the
// configured time ranges.
func (e *Evaluator) isCurrentTimeAllowed(tc *types.TimeCondition, now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()

	for _, r := range tc.DeniedTimeRanges {
		if rangeContains(r, minute) {
			return false
		}
	}

	if len(tc.AllowedTimeRanges) == 0 {
		return true
	}
	for _, r := range tc.AllowedTimeRanges {
		if rangeContains(r, minute) {
			return true
		}
	}
	return false
}

// isCurrentDayAllowed applies the same precedence over day-of-week names
func (e *Evaluator) isCurrentDayAllowed(tc *types.TimeCondition, now time.Time) bool {
	day := strings.ToUpper(now.Weekday().String())

	for _, d := range tc.DeniedDaysOfWeek {
		if strings.ToUpper(d) == day {
			return false
		}
	}

	if len(tc.AllowedDaysOfWeek) == 0 {
		return true
	}
	for _, d := range tc.AllowedDaysOfWeek {
		if strings.ToUpper(d) == day {
			return true
		}
	}
	return false
}

// rangeContains reports whether the minute-of-day falls inside the
// range, bounds inclusive. A range whose start equals its end is
// invalid and never matches. Start after end means the range wraps
// midnight: containment is t >= start OR t <= end.
func rangeContains(r types.TimeRange, minute int) bool {
	start, okS := parseMinute(r.Start)
	end, okE := parseMinute(r.End)
	if !okS || !okE || start == end {
		return false
	}
	if start > end {
		return minute >= start || minute <= end
	}
	return minute >= start && minute <= end
}

// parseMinute parses "HH:MM" into minutes since midnight
func parseMinute(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
