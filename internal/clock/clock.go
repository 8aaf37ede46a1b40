// Package clock implements the Clock & Calendar component: wall-clock
// time in a fixed policy timezone, weekday classification, and window
// arithmetic.
package clock

import (
	"fmt"
	"time"
)

// DefaultTimezone is used when no policy timezone is configured.
const DefaultTimezone = "US/Central"

// hourColonMinuteLayout is the wire format for a window's start time.
const hourColonMinuteLayout = "15:04"

// Config is the single runtime setting this component depends on: the
// policy timezone all window arithmetic is performed in, irrespective
// of the platform's or the caller's clock.
type Config struct {
	Timezone string
}

// Clock performs all time and calendar computations for a fixed
// policy timezone. It is a configuration record passed by reference,
// not a process-wide singleton, so tests can inject their own notion
// of "now" without touching global state.
type Clock struct {
	location *time.Location
	now      func() time.Time
}

// New constructs a Clock for the given Config. An empty Timezone
// defaults to DefaultTimezone. A bad timezone is a fatal startup error.
func New(cfg Config) (*Clock, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy timezone %q: %w", tz, err)
	}

	return &Clock{location: loc, now: time.Now}, nil
}

// WithNow returns a copy of the Clock that reads the current instant
// from fn instead of time.Now. Used by tests.
func (c *Clock) WithNow(fn func() time.Time) *Clock {
	return &Clock{location: c.location, now: fn}
}

// Now returns the current instant, localized to the policy timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.location)
}

// Location returns the configured policy timezone.
func (c *Clock) Location() *time.Location {
	return c.location
}

// Weekday returns t's weekday in the policy timezone.
func (c *Clock) Weekday(t time.Time) time.Weekday {
	return t.In(c.location).Weekday()
}

// TimeOfDay is an hour:minute offset into a calendar day, as carried
// by a Window's start field.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the wire format "HH:MM" (HH 00..23, MM 00..59).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse(hourColonMinuteLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid start time %q: must be HH:MM: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// String formats the TimeOfDay back to "HH:MM". Round-trips exactly
// with ParseTimeOfDay for all valid inputs.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Duration is a non-negative hours+minutes offset, always interpreted
// relative to a start time, never as a wall clock.
type Duration struct {
	Hours   int
	Minutes int
}

// ToDuration converts to a time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d.Hours)*time.Hour + time.Duration(d.Minutes)*time.Minute
}

// IsZero reports whether the Duration is the identity (zero-length)
// duration.
func (d Duration) IsZero() bool {
	return d.Hours == 0 && d.Minutes == 0
}

// Window computes the half-open interval [begin, end) for a window
// whose start-of-day is `start` and whose length is `dur`, anchored to
// the calendar date of `anchor` (already localized to the policy
// timezone by the caller).
//
// The start is formed as a local wall-clock instant via time.Date,
// then the Duration is added as wall-clock field arithmetic (hours and
// minutes), not as an absolute-instant offset: this is what makes a
// duration that spans a skipped DST hour shrink by the skipped
// interval, and a duration landing in a duplicated hour resolve to the
// first occurrence. An end whose wall-clock time falls inside a skipped
// interval is moved to the first instant after that interval, so the
// window loses exactly the part of its span that was skipped.
func (c *Clock) Window(anchor time.Time, start TimeOfDay, dur Duration) (begin, end time.Time) {
	y, m, d := anchor.Date()

	begin = time.Date(y, m, d, start.Hour, start.Minute, 0, 0, c.location)

	totalMinutes := start.Hour*60 + start.Minute + dur.Hours*60 + dur.Minutes
	endDayOffset := totalMinutes / (24 * 60)
	endMinuteOfDay := totalMinutes % (24 * 60)

	end = time.Date(y, m, d+endDayOffset, endMinuteOfDay/60, endMinuteOfDay%60, 0, 0, c.location)

	// A wall-clock end inside a skipped interval does not exist, and
	// time.Date resolves it to either side of the gap; clamp it to the
	// transition instant instead.
	wantWall := time.Date(y, m, d+endDayOffset, endMinuteOfDay/60, endMinuteOfDay%60, 0, 0, time.UTC)
	gotWall := time.Date(end.Year(), end.Month(), end.Day(), end.Hour(), end.Minute(), 0, 0, time.UTC)
	if !gotWall.Equal(wantWall) {
		zoneStart, zoneEnd := end.ZoneBounds()
		if gotWall.Before(wantWall) {
			end = zoneEnd
		} else {
			end = zoneStart
		}
	}

	return begin, end
}

// dayMatchesOne reports whether a single day-selector matches wd.
func dayMatchesOne(selector string, wd time.Weekday) bool {
	switch selector {
	case "everyday":
		return true
	case "weekday":
		return wd >= time.Monday && wd <= time.Friday
	case "weekend":
		return wd == time.Saturday || wd == time.Sunday
	case "sun":
		return wd == time.Sunday
	case "mon":
		return wd == time.Monday
	case "tue":
		return wd == time.Tuesday
	case "wed":
		return wd == time.Wednesday
	case "thu":
		return wd == time.Thursday
	case "fri":
		return wd == time.Friday
	case "sat":
		return wd == time.Saturday
	default:
		return false
	}
}

// DayMatches reports whether the weekday wd matches any selector in
// the set.
func DayMatches(selectors []string, wd time.Weekday) bool {
	for _, s := range selectors {
		if dayMatchesOne(s, wd) {
			return true
		}
	}
	return false
}

// WindowActive reports whether a window with the given start,
// duration, and day-selector set is active at t.
//
// A midnight-crossing window (start+duration spills past 24:00) may
// still be active after local midnight; its day-selector match applies
// to the *start* date, not to t's date. This function therefore checks
// both the window instance anchored to t's own calendar date and the
// instance anchored to the previous calendar date.
func (c *Clock) WindowActive(t time.Time, start TimeOfDay, dur Duration, days []string) bool {
	tLocal := t.In(c.location)

	for _, dayOffset := range []int{0, -1} {
		y, m, d := tLocal.Date()
		anchor := time.Date(y, m, d+dayOffset, 0, 0, 0, 0, c.location)

		if !DayMatches(days, anchor.Weekday()) {
			continue
		}

		begin, end := c.Window(anchor, start, dur)
		if !t.Before(begin) && t.Before(end) {
			return true
		}
	}

	return false
}
