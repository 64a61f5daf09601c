package availability

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/server/timezone"
)

// ErrNilEvent is returned when Aggregate is called without an event.
var ErrNilEvent = errors.New("availability: event is required")

// span is a participant range resolved to true instants.
type span struct {
	start time.Time
	end   time.Time
}

// Aggregate builds the availability grid for event from participants.
//
// Single-day events get one column per distinct date; meeting events get
// one column per slot of MeetingDuration minutes inside the day window
// derived from all ranges. Malformed records are logged and count as
// unavailable; they never fail the call.
func Aggregate(event *Event, participants []Participant, opts Options) (*Result, error) {
	if event == nil {
		return nil, ErrNilEvent
	}
	a := newAggregator(opts)

	result := newResult(a.viewerTZ, event.IsMeeting)
	if len(participants) == 0 {
		return result, nil
	}

	var vectors [][]Status
	if event.IsMeeting {
		duration := event.MeetingDuration
		if duration <= 0 {
			a.logger.Warn("meeting duration not positive, using default",
				"duration", event.MeetingDuration,
				"default", DefaultMeetingDuration)
			duration = DefaultMeetingDuration
		}
		vectors = a.meeting(result, participants, duration)
	} else {
		vectors = a.singleDay(result, participants)
	}

	keys := uniqueKeys(participants)
	for i, v := range vectors {
		result.Availability[keys[i]] = v
	}
	result.finish(vectors)
	return result, nil
}

type aggregator struct {
	viewerTZ string
	viewer   *time.Location
	fallback string
	calendar *time.Location
	logger   *slog.Logger
}

func newAggregator(opts Options) *aggregator {
	viewerTZ, viewer := timezone.ResolveTimezone(opts.ViewerTimezone, opts.FallbackTimezone)
	calendar := opts.CalendarLocation
	if calendar == nil {
		calendar = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &aggregator{
		viewerTZ: viewerTZ,
		viewer:   viewer,
		fallback: opts.FallbackTimezone,
		calendar: calendar,
		logger:   logger,
	}
}

// recordZone resolves a record's zone: its own, then the participant's,
// then the fallback, then UTC.
func (a *aggregator) recordZone(iv aitime.Interval, p Participant) *time.Location {
	_, loc := timezone.ResolveTimezone(iv.Timezone, p.Timezone, a.fallback)
	return loc
}

// singleDay marks each participant on every distinct date their records
// resolve to. Points are midnight in the calendar zone; ranges count on
// their start date in the record's zone.
func (a *aggregator) singleDay(result *Result, participants []Participant) [][]Status {
	dates := map[string]time.Time{}
	perParticipant := make([]map[string]bool, len(participants))

	for i, p := range participants {
		perParticipant[i] = map[string]bool{}
		for _, iv := range p.Intervals {
			day, ok := a.recordDate(iv, p)
			if !ok {
				continue
			}
			key := timezone.DateKey(day)
			if _, seen := dates[key]; !seen {
				dates[key] = day
			}
			perParticipant[i][key] = true
		}
	}

	keys := make([]string, 0, len(dates))
	for key := range dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		day := dates[key]
		result.Slots = append(result.Slots, DateInfo{
			Date:          day,
			DateString:    key,
			FormattedDate: day.Format("Mon, Jan 2, 2006"),
			Timezone:      a.viewerTZ,
		})
	}

	vectors := make([][]Status, len(participants))
	for i := range participants {
		vectors[i] = make([]Status, len(keys))
		for j, key := range keys {
			vectors[i][j] = StatusUnavailable
			if perParticipant[i][key] {
				vectors[i][j] = StatusAvailable
			}
		}
	}
	return vectors
}

// recordDate returns local midnight of the date a record stands for.
func (a *aggregator) recordDate(iv aitime.Interval, p Participant) (time.Time, bool) {
	if iv.NeedsLLMParsing {
		return time.Time{}, false
	}
	switch {
	case iv.IsPoint():
		t := time.Unix(iv.Timestamp.Seconds, 0).In(a.calendar)
		return timezone.StartOfDay(t, a.calendar), true
	case iv.IsRange():
		loc := a.recordZone(iv, p)
		t := timezone.DecodeIn(iv.StartTimestamp.Seconds, loc)
		return timezone.StartOfDay(t, loc), true
	default:
		a.logger.Warn("skipping malformed availability record",
			"participant", p.Key(),
			"text", iv.OriginalText,
			"kind", string(iv.Kind))
		return time.Time{}, false
	}
}

// meeting builds fixed-duration slots in the viewer zone.
func (a *aggregator) meeting(result *Result, participants []Participant, duration int) [][]Status {
	spans := make([][]span, len(participants))
	dates := map[string]time.Time{}
	earliest, latest := 24*60, 0
	hasRange := false

	for i, p := range participants {
		for _, iv := range p.Intervals {
			s, ok := a.recordSpan(iv, p)
			if !ok {
				continue
			}
			spans[i] = append(spans[i], s)
			hasRange = true

			for _, day := range touchedDates(s) {
				key := timezone.DateKey(day)
				if _, seen := dates[key]; !seen {
					dates[key] = day
				}
			}

			lo, hi := minuteBounds(s)
			earliest = min(earliest, lo)
			latest = max(latest, hi)
		}
	}

	earliest, latest = DayWindow(earliest, latest, hasRange)

	keys := make([]string, 0, len(dates))
	for key := range dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		day := dates[key]
		for m := earliest; m+duration <= latest; m += duration {
			start := time.Date(day.Year(), day.Month(), day.Day(), 0, m, 0, 0, a.viewer)
			// Wall-clock minutes skipped by a DST transition have no slot.
			if timezone.MinuteOfDay(start) != m {
				continue
			}
			end := start.Add(time.Duration(duration) * time.Minute)
			result.Slots = append(result.Slots, DateInfo{
				Date:          day,
				DateString:    SlotKey(start),
				FormattedDate: fmt.Sprintf("%s %s-%s", start.Format("Mon, Jan 2"), start.Format("15:04"), end.Format("15:04")),
				SlotStart:     &start,
				SlotEnd:       &end,
				Timezone:      a.viewerTZ,
			})
		}
	}

	vectors := make([][]Status, len(participants))
	for i := range participants {
		vectors[i] = make([]Status, len(result.Slots))
		for j, slot := range result.Slots {
			vectors[i][j] = StatusUnavailable
			for _, s := range spans[i] {
				if s.contains(*slot.SlotStart, *slot.SlotEnd) {
					vectors[i][j] = StatusAvailable
					break
				}
			}
		}
	}
	return vectors
}

// recordSpan decodes a range in its own zone and converts it to the viewer
// zone. Points carry no times and are not slots.
func (a *aggregator) recordSpan(iv aitime.Interval, p Participant) (span, bool) {
	if iv.NeedsLLMParsing {
		return span{}, false
	}
	if !iv.IsRange() {
		if !iv.IsPoint() {
			a.logger.Warn("skipping malformed availability record",
				"participant", p.Key(),
				"text", iv.OriginalText,
				"kind", string(iv.Kind))
		}
		return span{}, false
	}

	loc := a.recordZone(iv, p)
	start := timezone.DecodeIn(iv.StartTimestamp.Seconds, loc).In(a.viewer)
	end := timezone.DecodeIn(iv.EndTimestamp.Seconds, loc).In(a.viewer)
	if end.Before(start) {
		a.logger.Warn("skipping range that ends before it starts",
			"participant", p.Key(),
			"text", iv.OriginalText)
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// contains reports whether [slotStart, slotEnd) lies inside the span.
func (s span) contains(slotStart, slotEnd time.Time) bool {
	return !slotStart.Before(s.start) && !slotEnd.After(s.end)
}

// touchedDates lists viewer-zone midnights from the span's start date to its
// end date. A span ending exactly at midnight does not touch that day.
func touchedDates(s span) []time.Time {
	loc := s.start.Location()
	first := timezone.StartOfDay(s.start, loc)
	last := timezone.StartOfDay(s.end, loc)
	if s.end.Equal(last) && last.After(first) {
		last = last.AddDate(0, 0, -1)
	}

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// minuteBounds returns the minute-of-day window a span needs. A span that
// crosses midnight needs the day up to 24:00, and if it runs past the
// following midnight, from 00:00 as well.
func minuteBounds(s span) (int, int) {
	lo := timezone.MinuteOfDay(s.start)
	startDay := timezone.StartOfDay(s.start, s.start.Location())
	endDay := timezone.StartOfDay(s.end, s.end.Location())

	if endDay.Equal(startDay) {
		return lo, timezone.MinuteOfDay(s.end)
	}
	if s.end.Equal(endDay) && endDay.Equal(startDay.AddDate(0, 0, 1)) {
		return lo, 24 * 60
	}
	return 0, 24 * 60
}

// DayWindow applies the default, widening and 15-minute rounding rules to
// the raw earliest/latest minutes of all ranges.
func DayWindow(earliest, latest int, hasRange bool) (int, int) {
	if !hasRange {
		return DefaultEarliestMinute, DefaultLatestMinute
	}
	if latest-earliest < MinSpanMinutes {
		earliest -= WidenMinutes
		latest += WidenMinutes
	}
	earliest = max(earliest, 0)
	latest = min(latest, 24*60)

	earliest -= earliest % GridMinutes
	if r := latest % GridMinutes; r != 0 {
		latest += GridMinutes - r
	}
	return earliest, latest
}

// SlotKey formats a slot start as YYYY-MM-DD-HH-MM in its own zone.
func SlotKey(start time.Time) string {
	return start.Format("2006-01-02-15-04")
}

// uniqueKeys gives every participant a distinct availability key.
func uniqueKeys(participants []Participant) []string {
	keys := make([]string, len(participants))
	taken := make(map[string]bool, len(participants))
	for i, p := range participants {
		base := p.Key()
		if base == "" {
			base = "participant-" + strconv.Itoa(i+1)
		}
		key := base
		for n := 2; taken[key]; n++ {
			key = base + "#" + strconv.Itoa(n)
		}
		taken[key] = true
		keys[i] = key
	}
	return keys
}
