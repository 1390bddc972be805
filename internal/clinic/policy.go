package clinic

import (
	"fmt"
	"time"
)

// Policy holds the static booking rules of the clinic: which days of the
// week accept appointments and which times of day are bookable. Slots are
// points compared for exact equality, not intervals.
type Policy struct {
	times []string
}

// NewPolicy builds a policy from a list of times of day. Times are
// normalized to HH:MM and kept in the given order.
func NewPolicy(times []string) (*Policy, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("policy needs at least one bookable time")
	}

	normalized := make([]string, 0, len(times))
	for _, t := range times {
		n, err := NormalizeTime(t)
		if err != nil {
			return nil, fmt.Errorf("bookable time %q: %w", t, err)
		}
		normalized = append(normalized, n)
	}

	return &Policy{times: normalized}, nil
}

// IsBookableDay reports whether the clinic is open on the given date.
// The clinic closes on weekends; there is no holiday calendar.
func (p *Policy) IsBookableDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BookableTimes returns the slot start times in their configured order.
func (p *Policy) BookableTimes() []string {
	out := make([]string, len(p.times))
	copy(out, p.times)
	return out
}

// IsBookableTime reports whether the given normalized time of day is one
// of the clinic's slot start times.
func (p *Policy) IsBookableTime(t string) bool {
	for _, bt := range p.times {
		if bt == t {
			return true
		}
	}
	return false
}

// NormalizeTime parses a time of day given as HH:MM or HH:MM:SS and
// returns it in canonical HH:MM form.
func NormalizeTime(s string) (string, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04"), nil
	}
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t.Format("15:04"), nil
	}
	return "", fmt.Errorf("invalid time of day %q, want HH:MM", s)
}

// ParseDate parses a YYYY-MM-DD calendar date into a midnight UTC instant.
// Keeping dates at midnight UTC makes (date, time) slot equality exact.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOnly truncates an instant to its midnight UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
