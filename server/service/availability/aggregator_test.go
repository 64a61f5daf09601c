package availability

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/server/timezone"
)

func quietOptions(viewer string) Options {
	return Options{
		ViewerTimezone:   viewer,
		CalendarLocation: time.UTC,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func point(y int, m time.Month, d int) aitime.Interval {
	return aitime.NewPoint("", time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix(), "UTC")
}

func rangeOn(d, sh, sm, ed, eh, em int, tz string) aitime.Interval {
	return aitime.NewRange("",
		timezone.Encode(2026, time.June, d, sh, sm, 0),
		timezone.Encode(2026, time.June, ed, eh, em, 0),
		tz)
}

// assertConsistent checks the grid invariants every result must satisfy.
func assertConsistent(t *testing.T, r *Result) {
	t.Helper()
	require.Len(t, r.Availability, r.ParticipantCount)
	for key, statuses := range r.Availability {
		assert.Len(t, statuses, len(r.Slots), "participant %s", key)
	}
	for i, slot := range r.Slots {
		count := 0
		for _, statuses := range r.Availability {
			if statuses[i] == StatusAvailable {
				count++
			}
		}
		assert.Equal(t, count, r.AvailableCounts[slot.DateString], "slot %s", slot.DateString)
		common := r.ParticipantCount > 0 && count == r.ParticipantCount
		assert.Equal(t, common, r.CommonSlots[slot.DateString], "slot %s", slot.DateString)
	}
}

func slotKeys(r *Result) []string {
	keys := make([]string, len(r.Slots))
	for i, s := range r.Slots {
		keys[i] = s.DateString
	}
	return keys
}

func TestAggregate_NilEvent(t *testing.T) {
	_, err := Aggregate(nil, nil, quietOptions("UTC"))
	assert.ErrorIs(t, err, ErrNilEvent)
}

func TestAggregate_NoParticipants(t *testing.T) {
	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 30}, nil, quietOptions("UTC"))
	require.NoError(t, err)
	assert.Empty(t, r.Slots)
	assert.Equal(t, 0, r.ParticipantCount)
	assert.Empty(t, r.CommonSlots)
	assert.True(t, r.IsMeeting)
}

func TestAggregate_SingleDay(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{point(2026, time.June, 16), point(2026, time.June, 15)}},
		{ID: "b", Intervals: []aitime.Interval{
			point(2026, time.June, 16),
			aitime.NewPlaceholder("sometime", time.Now(), "UTC"),
		}},
	}

	r, err := Aggregate(&Event{}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Equal(t, []string{"2026-06-15", "2026-06-16"}, slotKeys(r))
	assert.Equal(t, "Mon, Jun 15, 2026", r.Slots[0].FormattedDate)
	assert.Nil(t, r.Slots[0].SlotStart)
	assert.Equal(t, []Status{StatusAvailable, StatusAvailable}, r.Availability["a"])
	assert.Equal(t, []Status{StatusUnavailable, StatusAvailable}, r.Availability["b"])
	assert.Equal(t, 50.0, r.Percentages["2026-06-15"])
	assert.Equal(t, 100.0, r.Percentages["2026-06-16"])
	assert.Equal(t, []string{"2026-06-16"}, r.CommonSlotKeys())
	assert.False(t, r.IsMeeting)
}

func TestAggregate_SingleDayRangeUsesRecordZone(t *testing.T) {
	// 23:00 typed in Tokyo stays on the 15th whatever the viewer zone.
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 23, 0, 16, 1, 0, "Asia/Tokyo")}},
	}

	r, err := Aggregate(&Event{}, participants, quietOptions("America/New_York"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06-15"}, slotKeys(r))
	assert.Equal(t, "America/New_York", r.Timezone)
}

func TestAggregate_SingleDayCalendarZone(t *testing.T) {
	tokyo := timezone.MustParseTimezone("Asia/Tokyo")
	midnight := time.Date(2026, time.June, 15, 0, 0, 0, 0, tokyo)
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{aitime.NewPoint("6/15", midnight.Unix(), "Asia/Tokyo")}},
	}

	opts := quietOptions("UTC")
	opts.CalendarLocation = tokyo
	r, err := Aggregate(&Event{}, participants, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06-15"}, slotKeys(r))
}

func TestAggregate_Meeting(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 12, 0, "UTC")}},
		{ID: "b", Intervals: []aitime.Interval{rangeOn(15, 10, 0, 15, 13, 0, "UTC")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Equal(t, []string{
		"2026-06-15-09-00",
		"2026-06-15-10-00",
		"2026-06-15-11-00",
		"2026-06-15-12-00",
	}, slotKeys(r))
	assert.Equal(t, []Status{StatusAvailable, StatusAvailable, StatusAvailable, StatusUnavailable}, r.Availability["a"])
	assert.Equal(t, []Status{StatusUnavailable, StatusAvailable, StatusAvailable, StatusAvailable}, r.Availability["b"])
	assert.Equal(t, []string{"2026-06-15-10-00", "2026-06-15-11-00"}, r.CommonSlotKeys())

	first := r.Slots[0]
	require.NotNil(t, first.SlotStart)
	require.NotNil(t, first.SlotEnd)
	assert.Equal(t, time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC), first.SlotStart.UTC())
	assert.Equal(t, time.Hour, first.SlotEnd.Sub(*first.SlotStart))
	assert.Equal(t, "Mon, Jun 15 09:00-10:00", first.FormattedDate)

	best := r.BestSlots(2)
	require.Len(t, best, 2)
	assert.Equal(t, "2026-06-15-10-00", best[0].DateString)
	assert.Equal(t, "2026-06-15-11-00", best[1].DateString)
}

func TestAggregate_MeetingWidensNarrowWindow(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 10, 0, "UTC")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 30}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	require.Len(t, r.Slots, 6)
	assert.Equal(t, "2026-06-15-08-00", r.Slots[0].DateString)
	assert.Equal(t, "2026-06-15-10-30", r.Slots[5].DateString)
	assert.Equal(t, []string{"2026-06-15-09-00", "2026-06-15-09-30"}, r.CommonSlotKeys())
}

func TestAggregate_MeetingDefaultDuration(t *testing.T) {
	var logs bytes.Buffer
	opts := quietOptions("UTC")
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 12, 0, "UTC")}},
	}
	r, err := Aggregate(&Event{IsMeeting: true}, participants, opts)
	require.NoError(t, err)

	assert.Len(t, r.Slots, 6)
	assert.Equal(t, 30*time.Minute, r.Slots[0].SlotEnd.Sub(*r.Slots[0].SlotStart))
	assert.Contains(t, logs.String(), "meeting duration not positive")
}

func TestAggregate_MeetingViewerZone(t *testing.T) {
	// 09:00-10:00 in Tokyo is 02:00-03:00 in Zurich (CEST).
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 10, 0, "Asia/Tokyo")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("Europe/Zurich"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Equal(t, "Europe/Zurich", r.Timezone)
	assert.Equal(t, []string{
		"2026-06-15-01-00",
		"2026-06-15-02-00",
		"2026-06-15-03-00",
	}, slotKeys(r))
	assert.Equal(t, []string{"2026-06-15-02-00"}, r.CommonSlotKeys())
	assert.Equal(t, time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC), r.Slots[1].SlotStart.UTC())
}

func TestAggregate_MeetingTimezoneChain(t *testing.T) {
	// The record has no usable zone, so the participant's Tokyo applies.
	iv := rangeOn(15, 9, 0, 15, 10, 0, "Mars/Olympus")
	participants := []Participant{
		{ID: "a", Timezone: "Asia/Tokyo", Intervals: []aitime.Interval{iv}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06-15-00-00"}, r.CommonSlotKeys())
}

func TestAggregate_InvalidViewerFallsBack(t *testing.T) {
	opts := quietOptions("Nowhere/Special")
	opts.FallbackTimezone = "Asia/Tokyo"

	r, err := Aggregate(&Event{}, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", r.Timezone)

	opts.FallbackTimezone = ""
	r, err = Aggregate(&Event{}, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "UTC", r.Timezone)
}

func TestAggregate_MeetingOvernight(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 22, 0, 16, 2, 0, "UTC")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Len(t, r.Slots, 48)
	assert.Equal(t, "2026-06-15-00-00", r.Slots[0].DateString)
	assert.Equal(t, "2026-06-16-23-00", r.Slots[47].DateString)
	assert.Equal(t, []string{
		"2026-06-15-22-00",
		"2026-06-15-23-00",
		"2026-06-16-00-00",
		"2026-06-16-01-00",
	}, r.CommonSlotKeys())
}

func newYorkRange(month time.Month, d, sh, ed, eh int) aitime.Interval {
	return aitime.NewRange("",
		timezone.Encode(2026, month, d, sh, 0, 0),
		timezone.Encode(2026, month, ed, eh, 0, 0),
		"America/New_York")
}

func TestAggregate_MeetingSpringForward(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{newYorkRange(time.March, 7, 22, 8, 6)}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("America/New_York"))
	require.NoError(t, err)
	assertConsistent(t, r)

	keys := slotKeys(r)
	assert.Len(t, keys, 47)
	assert.NotContains(t, keys, "2026-03-08-02-00")
	assert.Contains(t, keys, "2026-03-08-01-00")
	assert.Contains(t, keys, "2026-03-08-03-00")
	assert.Len(t, r.AvailableCounts, len(r.Slots))
	assert.Equal(t, []string{
		"2026-03-07-22-00",
		"2026-03-07-23-00",
		"2026-03-08-00-00",
		"2026-03-08-01-00",
		"2026-03-08-03-00",
		"2026-03-08-04-00",
		"2026-03-08-05-00",
	}, r.CommonSlotKeys())
}

func TestAggregate_MeetingFallBack(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{newYorkRange(time.October, 31, 22, 32, 6)}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("America/New_York"))
	require.NoError(t, err)
	assertConsistent(t, r)

	keys := slotKeys(r)
	assert.Len(t, keys, 48)
	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate slot %s", k)
		seen[k] = true
	}
	assert.Len(t, r.AvailableCounts, len(r.Slots))
	assert.Len(t, r.CommonSlotKeys(), 8)
}

func TestAggregate_MeetingEndingAtMidnight(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 18, 0, 16, 0, 0, "UTC")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	require.Len(t, r.Slots, 6)
	assert.Equal(t, "2026-06-15-18-00", r.Slots[0].DateString)
	assert.Equal(t, "2026-06-15-23-00", r.Slots[5].DateString)
	assert.Len(t, r.CommonSlotKeys(), 6)
}

func TestAggregate_MeetingMultiDay(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 12, 0, 17, 12, 0, "UTC")}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 720}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Equal(t, []string{
		"2026-06-15-00-00", "2026-06-15-12-00",
		"2026-06-16-00-00", "2026-06-16-12-00",
		"2026-06-17-00-00", "2026-06-17-12-00",
	}, slotKeys(r))
	assert.Equal(t, []string{
		"2026-06-15-12-00",
		"2026-06-16-00-00", "2026-06-16-12-00",
		"2026-06-17-00-00",
	}, r.CommonSlotKeys())
}

func TestAggregate_MalformedAndPlaceholderRecords(t *testing.T) {
	var logs bytes.Buffer
	opts := quietOptions("UTC")
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	participants := []Participant{
		{ID: "good", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 12, 0, "UTC")}},
		{ID: "bad", Intervals: []aitime.Interval{
			{Kind: aitime.KindRange, OriginalText: "broken"},
			aitime.NewPlaceholder("whenever", time.Now(), "UTC"),
			point(2026, time.June, 15),
		}},
	}

	r, err := Aggregate(&Event{IsMeeting: true, MeetingDuration: 60}, participants, opts)
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Equal(t, 2, r.ParticipantCount)
	assert.Len(t, r.Slots, 3)
	assert.Empty(t, r.CommonSlots)
	for _, s := range r.Availability["bad"] {
		assert.Equal(t, StatusUnavailable, s)
	}
	assert.Contains(t, logs.String(), "malformed")
	assert.NotContains(t, logs.String(), "whenever")
}

func TestAggregate_DuplicateKeys(t *testing.T) {
	participants := []Participant{
		{Name: "Ann", Intervals: []aitime.Interval{point(2026, time.June, 15)}},
		{Name: "Ann", Intervals: []aitime.Interval{point(2026, time.June, 16)}},
		{Intervals: []aitime.Interval{point(2026, time.June, 15)}},
	}

	r, err := Aggregate(&Event{}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Contains(t, r.Availability, "Ann")
	assert.Contains(t, r.Availability, "Ann#2")
	assert.Contains(t, r.Availability, "participant-3")
	assert.Equal(t, 2, r.AvailableCounts["2026-06-15"])
	assert.Equal(t, 1, r.AvailableCounts["2026-06-16"])
}

func TestAggregate_DuplicateKeysAvoidSuffixedNames(t *testing.T) {
	participants := []Participant{
		{Name: "bob", Intervals: []aitime.Interval{point(2026, time.June, 15)}},
		{Name: "bob", Intervals: []aitime.Interval{point(2026, time.June, 16)}},
		{Name: "bob#2", Intervals: []aitime.Interval{point(2026, time.June, 17)}},
	}

	r, err := Aggregate(&Event{}, participants, quietOptions("UTC"))
	require.NoError(t, err)
	assertConsistent(t, r)

	assert.Len(t, r.Availability, 3)
	assert.Contains(t, r.Availability, "bob")
	assert.Contains(t, r.Availability, "bob#2")
	assert.Contains(t, r.Availability, "bob#2#2")
	for _, day := range []string{"2026-06-15", "2026-06-16", "2026-06-17"} {
		assert.Equal(t, 1, r.AvailableCounts[day])
	}
}

func TestAggregate_Pure(t *testing.T) {
	participants := []Participant{
		{ID: "a", Intervals: []aitime.Interval{rangeOn(15, 9, 0, 15, 12, 0, "Asia/Tokyo")}},
		{ID: "b", Intervals: []aitime.Interval{rangeOn(15, 8, 0, 15, 11, 0, "UTC")}},
	}
	event := &Event{IsMeeting: true, MeetingDuration: 30}

	first, err := Aggregate(event, participants, quietOptions("Europe/Zurich"))
	require.NoError(t, err)
	second, err := Aggregate(event, participants, quietOptions("Europe/Zurich"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDayWindow(t *testing.T) {
	tests := []struct {
		name             string
		earliest, latest int
		hasRange         bool
		wantLo, wantHi   int
	}{
		{"no ranges", 0, 0, false, 420, 1140},
		{"wide enough", 540, 780, true, 540, 780},
		{"narrow", 540, 600, true, 480, 660},
		{"clamped at start", 10, 50, true, 0, 120},
		{"clamped at end", 1400, 1430, true, 1335, 1440},
		{"rounded", 547, 733, true, 540, 735},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := DayWindow(tt.earliest, tt.latest, tt.hasRange)
			assert.Equal(t, tt.wantLo, lo)
			assert.Equal(t, tt.wantHi, hi)
		})
	}
}

func TestBestSlots_Limit(t *testing.T) {
	r := newResult("UTC", false)
	r.Slots = []DateInfo{{DateString: "a"}, {DateString: "b"}, {DateString: "c"}}
	r.finish([][]Status{
		{StatusUnavailable, StatusAvailable, StatusAvailable},
		{StatusUnavailable, StatusUnavailable, StatusAvailable},
	})

	best := r.BestSlots(5)
	require.Len(t, best, 2)
	assert.Equal(t, "c", best[0].DateString)
	assert.Equal(t, "b", best[1].DateString)
	assert.Len(t, r.BestSlots(1), 1)
}
