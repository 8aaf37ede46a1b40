package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, tz string) *Clock {
	t.Helper()
	c, err := New(Config{Timezone: tz})
	require.NoError(t, err)
	return c
}

func TestNewDefaultsTimezone(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, c.Location().String())
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestParseTimeOfDayRoundTrips(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "23:59"} {
		tod, err := ParseTimeOfDay(s)
		require.NoError(t, err)
		assert.Equal(t, s, tod.String())
	}
}

func TestParseTimeOfDayRejectsMalformed(t *testing.T) {
	_, err := ParseTimeOfDay("25:00")
	assert.Error(t, err)

	_, err = ParseTimeOfDay("not-a-time")
	assert.Error(t, err)
}

func TestWindowHalfOpenBoundaries(t *testing.T) {
	c := mustClock(t, "UTC")
	start, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	dur := Duration{Hours: 1}

	anchor := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	begin, end := c.Window(anchor, start, dur)

	assert.True(t, c.WindowActive(begin, start, dur, []string{"everyday"}), "begin instant must be active (inclusive)")
	assert.False(t, c.WindowActive(end, start, dur, []string{"everyday"}), "end instant must not be active (exclusive)")
	assert.True(t, c.WindowActive(end.Add(-time.Nanosecond), start, dur, []string{"everyday"}))
}

func TestWindowZeroDurationNeverActive(t *testing.T) {
	c := mustClock(t, "UTC")
	start, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.False(t, c.WindowActive(at, start, Duration{}, []string{"everyday"}))
}

func TestWindowWrongDayNeverActive(t *testing.T) {
	c := mustClock(t, "UTC")
	start, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	dur := Duration{Hours: 2}

	// 2026-03-02 is a Monday.
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.False(t, c.WindowActive(at, start, dur, []string{"weekend"}))
	assert.True(t, c.WindowActive(at, start, dur, []string{"weekday"}))
}

func TestWindowMidnightCrossingStaysActiveOnNextDay(t *testing.T) {
	c := mustClock(t, "UTC")
	start, err := ParseTimeOfDay("23:00")
	require.NoError(t, err)
	dur := Duration{Hours: 2}

	// Active window opened Monday 23:00 should still be active Tuesday 00:30.
	monday := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	assert.True(t, c.WindowActive(monday, start, dur, []string{"mon"}))

	tuesdayEarly := time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC)
	assert.True(t, c.WindowActive(tuesdayEarly, start, dur, []string{"mon"}))

	// But not selected by the following day's own selector unless it also matches.
	assert.False(t, c.WindowActive(tuesdayEarly, start, dur, []string{"wed"}))
}

func TestWindowDSTSpringForwardShortensInterval(t *testing.T) {
	// America/Chicago springs forward 2026-03-08 02:00 -> 03:00.
	c := mustClock(t, "America/Chicago")
	start, err := ParseTimeOfDay("01:30")
	require.NoError(t, err)
	dur := Duration{Hours: 1}

	anchor := time.Date(2026, 3, 8, 0, 0, 0, 0, c.Location())
	begin, end := c.Window(anchor, start, dur)

	// Wall-clock arithmetic gives 01:30 + 1h = 02:30, which does not
	// exist; Window clamps it to 03:00, the first instant after the gap.
	assert.Equal(t, 3, end.Hour())
	assert.Equal(t, 0, end.Minute())

	// Real elapsed time is only 30 minutes, not the nominal 1 hour.
	assert.Equal(t, 30*time.Minute, end.Sub(begin))
}

func TestDayMatchesEverydayWeekdayWeekend(t *testing.T) {
	assert.True(t, DayMatches([]string{"everyday"}, time.Sunday))
	assert.True(t, DayMatches([]string{"weekday"}, time.Wednesday))
	assert.False(t, DayMatches([]string{"weekday"}, time.Saturday))
	assert.True(t, DayMatches([]string{"weekend"}, time.Saturday))
	assert.True(t, DayMatches([]string{"mon", "wed"}, time.Wednesday))
	assert.False(t, DayMatches([]string{"mon", "wed"}, time.Thursday))
	assert.False(t, DayMatches(nil, time.Monday))
}

func TestNowUsesInjectedClockAndPolicyTimezone(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := mustClock(t, "America/Chicago").WithNow(func() time.Time { return fixed })

	now := c.Now()
	assert.Equal(t, c.Location(), now.Location())
	assert.True(t, now.Equal(fixed))
}
