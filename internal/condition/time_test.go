package condition

import (
	"testing"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// 2026-01-05 is a Monday
func clockAt(hour, min int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 1, 5, hour, min, 0, 0, time.UTC)
	}
}

func TestTimeCondition_BusinessHours(t *testing.T) {
	tc := &types.TimeCondition{
		AllowedTimeRanges: []types.TimeRange{{Start: "09:00", End: "18:00"}},
	}

	tests := []struct {
		name  string
		hour  int
		min   int
		want  bool
	}{
		{"inside", 12, 0, true},
		{"start boundary inclusive", 9, 0, true},
		{"end boundary inclusive", 18, 0, true},
		{"before start", 8, 59, false},
		{"after end", 18, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(nil).WithClock(clockAt(tt.hour, tt.min))
			if got := e.evaluateTime(tc, e.clock()); got != tt.want {
				t.Errorf("at %02d:%02d got %v, want %v", tt.hour, tt.min, got, tt.want)
			}
		})
	}
}

func TestTimeCondition_MidnightWrap(t *testing.T) {
	tc := &types.TimeCondition{
		AllowedTimeRanges: []types.TimeRange{{Start: "22:00", End: "06:00"}},
	}

	tests := []struct {
		name string
		hour int
		min  int
		want bool
	}{
		{"before midnight", 23, 30, true},
		{"after midnight", 2, 0, true},
		{"start boundary", 22, 0, true},
		{"end boundary", 6, 0, true},
		{"midday outside", 12, 0, false},
		{"just past end", 6, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(nil).WithClock(clockAt(tt.hour, tt.min))
			if got := e.evaluateTime(tc, e.clock()); got != tt.want {
				t.Errorf("at %02d:%02d got %v, want %v", tt.hour, tt.min, got, tt.want)
			}
		})
	}
}

func TestTimeCondition_DeniedRangeWinsOverAllowed(t *testing.T) {
	tc := &types.TimeCondition{
		AllowedTimeRanges: []types.TimeRange{{Start: "00:00", End: "23:59"}},
		DeniedTimeRanges:  []types.TimeRange{{Start: "12:00", End: "13:00"}},
	}

	e := NewEvaluator(nil).WithClock(clockAt(12, 30))
	if e.evaluateTime(tc, e.clock()) {
		t.Error("denied range should take precedence over allowed range")
	}

	e = NewEvaluator(nil).WithClock(clockAt(14, 0))
	if !e.evaluateTime(tc, e.clock()) {
		t.Error("time outside the denied range should be allowed")
	}
}

func TestTimeCondition_ZeroWidthRangeNeverMatches(t *testing.T) {
	tc := &types.TimeCondition{
		AllowedTimeRanges: []types.TimeRange{{Start: "09:00", End: "09:00"}},
	}

	e := NewEvaluator(nil).WithClock(clockAt(9, 0))
	if e.evaluateTime(tc, e.clock()) {
		t.Error("a range whose start equals its end must never match")
	}
}

func TestTimeCondition_DaysOfWeek(t *testing.T) {
	e := NewEvaluator(nil).WithClock(clockAt(12, 0)) // Monday

	allowed := &types.TimeCondition{AllowedDaysOfWeek: []string{"MONDAY", "TUESDAY"}}
	if !e.evaluateTime(allowed, e.clock()) {
		t.Error("Monday should match the allowed day list")
	}

	caseInsensitive := &types.TimeCondition{AllowedDaysOfWeek: []string{"monday"}}
	if !e.evaluateTime(caseInsensitive, e.clock()) {
		t.Error("day names should match case-insensitively")
	}

	denied := &types.TimeCondition{
		AllowedDaysOfWeek: []string{"MONDAY"},
		DeniedDaysOfWeek:  []string{"MONDAY"},
	}
	if e.evaluateTime(denied, e.clock()) {
		t.Error("denied day should take precedence")
	}

	weekend := &types.TimeCondition{AllowedDaysOfWeek: []string{"SATURDAY", "SUNDAY"}}
	if e.evaluateTime(weekend, e.clock()) {
		t.Error("Monday should not match a weekend-only list")
	}
}

func TestParseMinute(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseMinute(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseMinute(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
