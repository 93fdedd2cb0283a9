package models

import (
	"fmt"
	"strings"
	"time"
)

// CivilTimeLayout is the zone-less wire format shared with the PARAS backend.
// Timestamps are local wall-clock values by convention; they are never
// converted through UTC on either side.
const CivilTimeLayout = "2006-01-02T15:04:05"

// civilMinuteLayout covers datetime-local inputs that omit seconds.
const civilMinuteLayout = "2006-01-02T15:04"

// CivilTime is a civil (zone-less) timestamp with seconds precision.
type CivilTime struct {
	time.Time
}

func NewCivilTime(t time.Time) CivilTime {
	return CivilTime{t.Truncate(time.Second)}
}

// ParseCivilTime parses a civil datetime string in local time. A missing
// seconds part is tolerated; fractional seconds are dropped.
func ParseCivilTime(s string) (CivilTime, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return CivilTime{}, fmt.Errorf("empty datetime")
	}
	if idx := strings.IndexByte(raw, '.'); idx > 0 {
		raw = raw[:idx]
	}

	if t, err := time.ParseInLocation(CivilTimeLayout, raw, time.Local); err == nil {
		return CivilTime{t}, nil
	}
	t, err := time.ParseInLocation(civilMinuteLayout, raw, time.Local)
	if err != nil {
		return CivilTime{}, fmt.Errorf("invalid datetime %q", s)
	}
	return CivilTime{t}, nil
}

func (c CivilTime) String() string {
	return c.Format(CivilTimeLayout)
}

func (c CivilTime) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + c.Format(CivilTimeLayout) + `"`), nil
}

func (c *CivilTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*c = CivilTime{}
		return nil
	}
	parsed, err := ParseCivilTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
