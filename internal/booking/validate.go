// Package booking holds the client-side loan window rules. The checks mirror
// what the backend enforces; rejecting early is a courtesy to the user, not a
// security boundary.
package booking

import (
	"fmt"
	"time"

	"paras/internal/models"
)

const (
	// DefaultOpeningMinute and DefaultClosingMinute bound the operating
	// window, expressed as minutes since midnight. Both ends are inclusive:
	// a loan ending exactly at closing time is allowed.
	DefaultOpeningMinute = 7 * 60
	DefaultClosingMinute = 20 * 60

	DefaultMaxDuration = 240 * time.Minute
	DefaultMinLead     = 10 * time.Minute
)

// Rules parameterizes the window validation. The zero value is not usable;
// start from DefaultRules.
type Rules struct {
	OpeningMinute int
	ClosingMinute int
	MaxDuration   time.Duration
	MinLead       time.Duration
}

func DefaultRules() Rules {
	return Rules{
		OpeningMinute: DefaultOpeningMinute,
		ClosingMinute: DefaultClosingMinute,
		MaxDuration:   DefaultMaxDuration,
		MinLead:       DefaultMinLead,
	}
}

// NewRules builds Rules from config overrides; zero fields keep the defaults.
func NewRules(openingMinute, closingMinute, maxDurationMins, minLeadMins int) Rules {
	r := DefaultRules()
	if openingMinute > 0 {
		r.OpeningMinute = openingMinute
	}
	if closingMinute > 0 {
		r.ClosingMinute = closingMinute
	}
	if maxDurationMins > 0 {
		r.MaxDuration = time.Duration(maxDurationMins) * time.Minute
	}
	if minLeadMins > 0 {
		r.MinLead = time.Duration(minLeadMins) * time.Minute
	}
	return r
}

// ParseLocal parses a civil datetime string as local wall-clock time.
func ParseLocal(s string) (time.Time, error) {
	ct, err := models.ParseCivilTime(s)
	if err != nil {
		return time.Time{}, err
	}
	return ct.Time, nil
}

// ValidateInput validates raw start/end strings against now. Unparseable
// boundaries yield only the parse errors; the remaining rules are meaningless
// without two valid instants.
func (r Rules) ValidateInput(startRaw, endRaw string, now time.Time) []string {
	var violations []string

	start, startErr := ParseLocal(startRaw)
	if startErr != nil {
		violations = append(violations, "StartTime is not a valid datetime.")
	}
	end, endErr := ParseLocal(endRaw)
	if endErr != nil {
		violations = append(violations, "EndTime is not a valid datetime.")
	}
	if len(violations) > 0 {
		return violations
	}

	return r.Validate(start, end, now)
}

// Validate checks a start/end pair against now and returns every violated
// rule in order. An empty result means the window is acceptable. All rules
// are evaluated so the user sees the full picture at once.
func (r Rules) Validate(start, end, now time.Time) []string {
	var violations []string

	if !start.Before(end) {
		violations = append(violations, "StartTime must be earlier than EndTime.")
	}

	if end.Sub(start) > r.MaxDuration {
		violations = append(violations,
			fmt.Sprintf("Maximum duration is %d minutes.", int(r.MaxDuration.Minutes())))
	}

	if start.Before(now.Add(r.MinLead)) {
		violations = append(violations,
			fmt.Sprintf("StartTime must be at least %d minutes from now.", int(r.MinLead.Minutes())))
	}

	if !r.withinOperatingWindow(start) || !r.withinOperatingWindow(end) {
		violations = append(violations,
			fmt.Sprintf("Loans are only allowed between %s and %s.",
				formatMinute(r.OpeningMinute), formatMinute(r.ClosingMinute)))
	}

	return violations
}

func (r Rules) withinOperatingWindow(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= r.OpeningMinute && m <= r.ClosingMinute
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
