package aitime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/slotfinder/server/timezone"
)

// Mode selects the grammar set.
type Mode int

const (
	// ModeEvent parses plain dates for single-day polls.
	ModeEvent Mode = iota
	// ModeMeeting parses time ranges for meeting finders.
	ModeMeeting
)

// ModeFor maps an event's meeting flag to a Mode.
func ModeFor(isMeeting bool) Mode {
	if isMeeting {
		return ModeMeeting
	}
	return ModeEvent
}

func (m Mode) String() string {
	if m == ModeMeeting {
		return "meeting"
	}
	return "event"
}

// Patterns for segment parsing.
var (
	segmentSplitPattern = regexp.MustCompile(`[,;\n]+`)
	bareYearPattern     = regexp.MustCompile(`^\d{3,4}$`)

	// Meeting mode: "6/15 from 9 to 12", "6/15/2026 from 9:30 - 11"
	numericRangePattern = regexp.MustCompile(`(?i)^(\d{1,2})/(\d{1,2})(?:/(\d{1,4}))?\s+from\s+(\d{1,2})(?::(\d{2}))?\s*(?:to|-)\s*(\d{1,2})(?::(\d{2}))?$`)
	// Meeting mode: "monday from 9 to 17"
	weekdayRangePattern = regexp.MustCompile(`(?i)^([a-z]+)\s+from\s+(\d{1,2})(?::(\d{2}))?\s*(?:to|-)\s*(\d{1,2})(?::(\d{2}))?$`)

	// Event mode: "6/15", "6-15-26", "6/15/2026"
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{1,4}))?$`)
	// Event mode: "June 15", "jun 15, 2026"
	namedDatePattern = regexp.MustCompile(`(?i)^([a-z]+)\.?\s+(\d{1,2})(?:(?:,\s*|\s+)(\d{1,4}))?$`)
)

// Parser is the deterministic, rule-based availability parser. It makes no
// external calls and is always available as a fallback.
type Parser struct {
	// calendar is the zone date-only records are anchored to.
	calendar *time.Location
	now      func() time.Time
}

// NewParser creates a parser whose date-only records are midnight in calendar.
func NewParser(calendar *time.Location) *Parser {
	if calendar == nil {
		calendar = time.Local
	}
	return &Parser{
		calendar: calendar,
		now:      time.Now,
	}
}

// WithClock returns a copy of the parser reading "now" from the given clock.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	return &Parser{
		calendar: p.calendar,
		now:      now,
	}
}

// Now reads the parser's clock.
func (p *Parser) Now() time.Time {
	return p.now()
}

// Calendar returns the zone date-only records are anchored to.
func (p *Parser) Calendar() *time.Location {
	return p.calendar
}

// SplitSegments splits input on commas, semicolons and newlines, trimming
// and discarding empty pieces. A bare year following a comma stays attached
// to the preceding segment ("June 15, 2026"). Meeting mode splits strictly
// and never rejoins.
func SplitSegments(input string) []string {
	return splitSegments(input, true)
}

func splitSegments(input string, joinYears bool) []string {
	parts := segmentSplitPattern.Split(input, -1)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if joinYears && bareYearPattern.MatchString(part) && len(segments) > 0 && namedDatePattern.MatchString(segments[len(segments)-1]) {
			segments[len(segments)-1] += ", " + part
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

// Parse converts free text into intervals. An empty timezone means UTC.
//
// Meeting mode emits a NeedsLLMParsing placeholder for unrecognised
// segments; event mode drops them.
func (p *Parser) Parse(input string, mode Mode, tz string) []Interval {
	if tz == "" {
		tz = timezone.TimezoneUTC
	}
	loc, err := timezone.ParseTimezone(tz)
	if err != nil {
		loc = timezone.UTC
	}
	now := p.now().In(loc)

	segments := splitSegments(input, mode != ModeMeeting)
	intervals := make([]Interval, 0, len(segments))
	for _, segment := range segments {
		var (
			iv Interval
			ok bool
		)
		if mode == ModeMeeting {
			iv, ok = p.parseMeetingSegment(segment, now, tz)
			if !ok {
				iv, ok = NewPlaceholder(segment, now, tz), true
			}
		} else {
			iv, ok = p.parseDateSegment(segment, now, tz)
		}
		if ok {
			intervals = append(intervals, iv)
		}
	}
	return intervals
}

// parseMeetingSegment tries the range grammars in priority order.
func (p *Parser) parseMeetingSegment(segment string, now time.Time, tz string) (Interval, bool) {
	if m := numericRangePattern.FindStringSubmatch(segment); m != nil {
		year, month, day, ok := resolveDate(m[1], m[2], m[3], now)
		if !ok {
			return Interval{}, false
		}
		return buildRange(segment, year, month, day, m[4], m[5], m[6], m[7], tz)
	}

	if m := weekdayRangePattern.FindStringSubmatch(segment); m != nil {
		target := DayOfWeekIndex(m[1])
		if target < 0 {
			return Interval{}, false
		}
		daysToAdd := (target - int(now.Weekday()) + 7) % 7
		date := time.Date(now.Year(), now.Month(), now.Day()+daysToAdd, 0, 0, 0, 0, time.UTC)
		return buildRange(segment, date.Year(), date.Month(), date.Day(), m[2], m[3], m[4], m[5], tz)
	}

	return Interval{}, false
}

// parseDateSegment tries the date grammars in priority order.
func (p *Parser) parseDateSegment(segment string, now time.Time, tz string) (Interval, bool) {
	if m := numericDatePattern.FindStringSubmatch(segment); m != nil {
		year, month, day, ok := resolveDate(m[1], m[2], m[3], now)
		if !ok {
			return Interval{}, false
		}
		return NewPoint(segment, p.dateSeconds(year, month, day), tz), true
	}

	if m := namedDatePattern.FindStringSubmatch(segment); m != nil {
		idx := MonthIndex(m[1])
		if idx < 0 {
			return Interval{}, false
		}
		year, month, day, ok := resolveDate(strconv.Itoa(idx+1), m[2], m[3], now)
		if !ok {
			return Interval{}, false
		}
		return NewPoint(segment, p.dateSeconds(year, month, day), tz), true
	}

	return Interval{}, false
}

// dateSeconds anchors a date-only record to midnight in the calendar zone.
func (p *Parser) dateSeconds(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, p.calendar).Unix()
}

// ResolveYear applies the year rules: absent → current year, one or two
// digits → 2000+value, three or more digits → literal.
func ResolveYear(raw string, now time.Time) (int, bool) {
	if raw == "" {
		return now.Year(), true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if len(raw) <= 2 {
		return 2000 + v, true
	}
	return v, true
}

// resolveDate validates month/day/year digits. Impossible calendar dates
// (2/30) are rejected rather than rolled over.
func resolveDate(rawMonth, rawDay, rawYear string, now time.Time) (int, time.Month, int, bool) {
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, false
	}
	day, err := strconv.Atoi(rawDay)
	if err != nil || day < 1 {
		return 0, 0, 0, false
	}
	year, ok := ResolveYear(rawYear, now)
	if !ok {
		return 0, 0, 0, false
	}
	if day > daysIn(year, time.Month(month)) {
		return 0, 0, 0, false
	}
	return year, time.Month(month), day, true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// parseClock reads an hour and optional minute. 24:00 is accepted as end of day.
func parseClock(rawHour, rawMinute string) (int, int, bool) {
	hour, err := strconv.Atoi(rawHour)
	if err != nil {
		return 0, 0, false
	}
	minute := 0
	if rawMinute != "" {
		if minute, err = strconv.Atoi(rawMinute); err != nil {
			return 0, 0, false
		}
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, 0, false
	}
	return hour, minute, true
}

// BuildRange encodes a same-day time range as wall-clock-as-UTC seconds.
// An end earlier than the start wraps to the following day.
func BuildRange(text string, year int, month time.Month, day, startHour, startMinute, endHour, endMinute int, tz string) Interval {
	start := timezone.Encode(year, month, day, startHour, startMinute, 0)
	end := timezone.Encode(year, month, day, endHour, endMinute, 0)
	if end < start {
		end = timezone.Encode(year, month, day+1, endHour, endMinute, 0)
	}
	return NewRange(text, start, end, tz)
}

func buildRange(text string, year int, month time.Month, day int, rawStartHour, rawStartMinute, rawEndHour, rawEndMinute string, tz string) (Interval, bool) {
	startHour, startMinute, ok := parseClock(rawStartHour, rawStartMinute)
	if !ok {
		return Interval{}, false
	}
	endHour, endMinute, ok := parseClock(rawEndHour, rawEndMinute)
	if !ok {
		return Interval{}, false
	}
	return BuildRange(text, year, month, day, startHour, startMinute, endHour, endMinute, tz), true
}
