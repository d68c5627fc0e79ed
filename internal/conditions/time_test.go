package conditions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a TimeWindow pinned to the given wall time.
func fixedClock(weekday time.Weekday, hour, minute int) *TimeWindow {
	// 2026-08-03 is a Monday; shift to the requested weekday.
	base := time.Date(2026, 8, 3, hour, minute, 0, 0, time.UTC)
	base = base.AddDate(0, 0, int(weekday-time.Monday))
	return &TimeWindow{now: func() time.Time { return base }}
}

func TestTimeWindow_DaytimeRange(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		minute   int
		expected bool
	}{
		{"BeforeWindow", 8, 59, false},
		{"AtStart", 9, 0, true},
		{"Inside", 12, 30, true},
		{"AtEnd", 17, 0, true},
		{"AfterWindow", 17, 1, false},
	}

	cfg := map[string]any{"after": "09:00", "before": "17:00"}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cond := fixedClock(time.Monday, tc.hour, tc.minute)
			verdict, _, err := cond.Evaluate(context.Background(), cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, verdict)
		})
	}
}

func TestTimeWindow_CrossesMidnight(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		minute   int
		expected bool
	}{
		{"LateEvening", 23, 30, true},
		{"EarlyMorning", 3, 0, true},
		{"AtEnd", 6, 0, true},
		{"Midday", 12, 0, false},
		{"JustBeforeStart", 21, 59, false},
	}

	cfg := map[string]any{"after": "22:00", "before": "06:00"}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cond := fixedClock(time.Monday, tc.hour, tc.minute)
			verdict, _, err := cond.Evaluate(context.Background(), cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, verdict)
		})
	}
}

func TestTimeWindow_WeekdaySchedule(t *testing.T) {
	cfg := map[string]any{
		"days":  []any{"saturday", "sunday"},
		"after": "00:00", "before": "23:59",
	}

	saturday := fixedClock(time.Saturday, 12, 0)
	verdict, _, err := saturday.Evaluate(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, verdict)

	tuesday := fixedClock(time.Tuesday, 12, 0)
	verdict, _, err = tuesday.Evaluate(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.False(t, verdict)
}

func TestTimeWindow_ScheduleOnly(t *testing.T) {
	cfg := map[string]any{"days": "monday"}

	monday := fixedClock(time.Monday, 12, 0)
	verdict, _, err := monday.Evaluate(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, verdict)
}

func TestTimeWindow_OpenEnds(t *testing.T) {
	// Only "after": the window runs to end of day.
	cond := fixedClock(time.Monday, 23, 0)
	verdict, _, err := cond.Evaluate(context.Background(),
		map[string]any{"after": "18:00"}, nil)
	require.NoError(t, err)
	assert.True(t, verdict)

	// Only "before": the window starts at midnight.
	cond = fixedClock(time.Monday, 1, 0)
	verdict, _, err = cond.Evaluate(context.Background(),
		map[string]any{"before": "06:00"}, nil)
	require.NoError(t, err)
	assert.True(t, verdict)
}

func TestTimeWindow_InvalidClock(t *testing.T) {
	cond := fixedClock(time.Monday, 12, 0)
	_, _, err := cond.Evaluate(context.Background(),
		map[string]any{"after": "25:00"}, nil)
	assert.Error(t, err)
}
