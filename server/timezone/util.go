// Package timezone provides timezone utilities for slotfinder.
//
// Availability ranges are stored as wall-clock digits encoded as if they
// were UTC ("relabel, don't convert"). Encode produces those seconds,
// Decode relabels them into the zone they were typed in, and Convert is a
// genuine conversion into a viewer's zone.
package timezone

import (
	"fmt"
	"sync"
	"time"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC

	// Local is the local timezone
	Local = time.Local
)

// TimezoneUTC is the UTC timezone identifier.
const TimezoneUTC = "UTC"

var locationCache sync.Map // map[string]*time.Location

// ParseTimezone parses an IANA timezone identifier (e.g., "Europe/Zurich").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == TimezoneUTC {
		return UTC, nil
	}
	if loc, ok := locationCache.Load(tz); ok {
		return loc.(*time.Location), nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	locationCache.Store(tz, loc)
	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// ResolveTimezone returns the first non-empty, valid zone among candidates,
// falling back to UTC.
func ResolveTimezone(candidates ...string) (string, *time.Location) {
	for _, tz := range candidates {
		if tz == "" {
			continue
		}
		if loc, err := ParseTimezone(tz); err == nil {
			return tz, loc
		}
	}
	return TimezoneUTC, UTC
}

// WallClock is a zone-free set of calendar and clock digits.
type WallClock struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// String formats the digits as "2006-01-02 15:04:05".
func (w WallClock) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second)
}

// Encode returns epoch seconds for the digits read as UTC. The result is
// not the true instant of the event; it is resolved at display time.
func Encode(year int, month time.Month, day, hour, minute, second int) int64 {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC).Unix()
}

// EncodeTime encodes the wall clock of t, ignoring its zone.
func EncodeTime(t time.Time) int64 {
	return Encode(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// WallClockOf reads encoded seconds back into digits.
func WallClockOf(seconds int64) WallClock {
	t := time.Unix(seconds, 0).UTC()
	return WallClock{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Decode relabels encoded seconds into tz: the digits are kept and only the
// zone changes. Digits inside a DST gap are normalised by time.Date.
func Decode(seconds int64, tz string) (time.Time, error) {
	loc, err := ParseTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	return DecodeIn(seconds, loc), nil
}

// DecodeIn is Decode with an already loaded location.
func DecodeIn(seconds int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = UTC
	}
	w := WallClockOf(seconds)
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, loc)
}

// Convert shifts t into tz, changing the wall clock but not the instant.
func Convert(t time.Time, tz string) (time.Time, error) {
	loc, err := ParseTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// DateKey formats the calendar date of t as "2006-01-02" in t's own zone.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MinuteOfDay returns minutes since local midnight in t's own zone.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
