package export

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/server/service/availability"
	"github.com/hrygo/slotfinder/store"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func meetingResult(t *testing.T) *availability.Result {
	t.Helper()
	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)
	result, err := availability.Aggregate(
		&availability.Event{IsMeeting: true, MeetingDuration: 60},
		[]availability.Participant{
			{ID: "a", Intervals: []aitime.Interval{aitime.BuildRange("6/15 9-12", 2026, time.June, 15, 9, 0, 12, 0, "Europe/Zurich")}},
			{ID: "b", Intervals: []aitime.Interval{aitime.BuildRange("6/15 10-12", 2026, time.June, 15, 10, 0, 12, 0, "Europe/Zurich")}},
		},
		availability.Options{ViewerTimezone: "Europe/Zurich", CalendarLocation: zurich},
	)
	require.NoError(t, err)
	return result
}

func TestCalendarICS_Meeting(t *testing.T) {
	event := &store.Event{ID: "evt1", Title: "Planning", Description: "Quarterly", IsMeeting: true}
	out, err := CalendarICS(event, meetingResult(t), "https://example.com/e/evt1", now)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "evt1-2026-06-15-10-00@slotfinder", first.Id())
	assert.Equal(t, "Planning", first.GetProperty(ical.ComponentPropertySummary).Value)
	start, err := first.GetStartAt()
	require.NoError(t, err)
	// 10:00 CEST.
	assert.Equal(t, time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC), start.UTC())
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, end.Sub(start))
}

func TestCalendarICS_SingleDay(t *testing.T) {
	day := func(d int) aitime.Interval {
		return aitime.NewPoint("june", time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC).Unix(), "UTC")
	}
	result, err := availability.Aggregate(
		&availability.Event{},
		[]availability.Participant{
			{ID: "a", Intervals: []aitime.Interval{day(3), day(4)}},
			{ID: "b", Intervals: []aitime.Interval{day(4)}},
		},
		availability.Options{ViewerTimezone: "UTC", CalendarLocation: time.UTC},
	)
	require.NoError(t, err)

	out, err := CalendarICS(&store.Event{ID: "evt2", Title: "Picnic"}, result, "", now)
	require.NoError(t, err)
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260604")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20260605")
	assert.NotContains(t, out, "20260603")
}

func TestCalendarICS_NoCommonSlots(t *testing.T) {
	result, err := availability.Aggregate(&availability.Event{}, nil, availability.Options{})
	require.NoError(t, err)
	out, err := CalendarICS(&store.Event{ID: "evt3", Title: "Empty"}, result, "", now)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")

	_, err = CalendarICS(nil, result, "", now)
	assert.Error(t, err)
}

func TestCalendarFileName(t *testing.T) {
	assert.Equal(t, "team-sync-q3.ics", CalendarFileName(&store.Event{ID: "x", Title: "Team Sync (Q3)"}))
	assert.Equal(t, "x.ics", CalendarFileName(&store.Event{ID: "x", Title: "!!!"}))
}

func TestResponsesAtom(t *testing.T) {
	event := &store.Event{ID: "evt1", Title: "Planning", CreatorName: "Ada", CreatedTs: 1000, UpdatedTs: 1000}
	participants := []*store.Participant{
		{ID: "p1", Name: "Grace", RawDateInput: "6/15 from 9 to 12", CreatedTs: 1100, UpdatedTs: 1100, Timezone: "Europe/Zurich",
			ParsedDates: []aitime.Interval{aitime.BuildRange("6/15 from 9 to 12", 2026, time.June, 15, 9, 0, 12, 0, "Europe/Zurich")}},
		{ID: "p2", Name: "Alan", RawDateInput: "sometime", CreatedTs: 1200, UpdatedTs: 1300,
			ParsedDates: []aitime.Interval{aitime.NewPlaceholder("sometime", now, "UTC")}},
	}

	out, err := ResponsesAtom(event, participants, "https://example.com/e/evt1")
	require.NoError(t, err)
	assert.Contains(t, out, "<feed")
	assert.Equal(t, 2, strings.Count(out, "<entry>"))
	assert.Less(t, strings.Index(out, "Alan responded"), strings.Index(out, "Grace responded"))
	assert.Contains(t, out, "6/15 from 9 to 12 (1 parsed, Europe/Zurich)")
	assert.Contains(t, out, "sometime (0 parsed)")
	assert.Contains(t, out, "urn:slotfinder:participant:p1")

	_, err = ResponsesAtom(nil, nil, "")
	assert.Error(t, err)
}
