package conditions

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// TimeWindow checks the wall clock against a daily time range and an
// optional weekday schedule. Config: {after, before, days?}; after and
// before are "HH:MM" strings, a range with after > before crosses
// midnight.
type TimeWindow struct {
	// now is swappable for tests.
	now func() time.Time
}

// Type returns the registration tag.
func (t *TimeWindow) Type() string { return "time" }

// Evaluate reports whether the current wall clock is inside the window.
func (t *TimeWindow) Evaluate(
	_ context.Context,
	cfg map[string]any,
	_ *scenario.Context,
) (bool, map[string]any, error) {
	nowFn := t.now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()

	days, err := cfgStrings(cfg, "days")
	if err != nil {
		return false, nil, fmt.Errorf("time: %w", err)
	}
	if len(days) > 0 {
		weekday := strings.ToLower(now.Weekday().String())
		match := slices.ContainsFunc(days, func(d string) bool {
			return strings.EqualFold(d, weekday)
		})
		if !match {
			return false, nil, nil
		}
	}

	after := cfgString(cfg, "after")
	before := cfgString(cfg, "before")
	if after == "" && before == "" {
		// Schedule-only condition.
		return len(days) > 0, nil, nil
	}

	minutes := now.Hour()*60 + now.Minute()
	afterMin, err := parseClock(after, 0)
	if err != nil {
		return false, nil, fmt.Errorf("time: after: %w", err)
	}
	beforeMin, err := parseClock(before, 24*60-1)
	if err != nil {
		return false, nil, fmt.Errorf("time: before: %w", err)
	}

	var inside bool
	if afterMin <= beforeMin {
		inside = minutes >= afterMin && minutes <= beforeMin
	} else {
		// Window crosses midnight.
		inside = minutes >= afterMin || minutes <= beforeMin
	}
	return inside, nil, nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
