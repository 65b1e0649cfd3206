package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Minutes is a clock reading normalized to minutes since midnight. All
// interval arithmetic happens on this representation; the legacy strings
// only exist at the persistence boundary.
type Minutes int

// The store carries clock strings in two formats: 12-hour with AM/PM
// ("09:20 AM") and 24-hour ("09:20"). Both must keep parsing; new values
// are written back in the 12-hour form.
var clockLayouts = []string{"03:04 PM", "3:04 PM", "15:04"}

// ParseClock normalizes a legacy clock string to Minutes.
func ParseClock(s string) (Minutes, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, trimmed)
		if err == nil {
			return Minutes(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("unparseable clock string %q", s)
}

// String renders Minutes in the canonical persisted form, e.g. "09:20 AM".
func (m Minutes) String() string {
	mm := int(m)
	for mm < 0 {
		mm += 24 * 60
	}
	mm %= 24 * 60
	t := time.Date(2000, 1, 1, mm/60, mm%60, 0, 0, time.UTC)
	return t.Format("03:04 PM")
}

// Add returns the reading shifted by d, truncated to whole minutes.
func (m Minutes) Add(d time.Duration) Minutes {
	return m + Minutes(d/time.Minute)
}

// MinutesOfDay extracts the clock reading from a wall-clock instant.
func MinutesOfDay(t time.Time) Minutes {
	return Minutes(t.Hour()*60 + t.Minute())
}

// Clock supplies "now"; injectable so the engines are testable against
// fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock pins Now to a single instant, for tests.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }
