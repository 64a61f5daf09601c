// Package export renders an event's aggregated availability for consumption
// outside the API: iCalendar files for calendar clients and Atom feeds of
// participant responses.
package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hrygo/slotfinder/server/service/availability"
	"github.com/hrygo/slotfinder/store"
)

const productID = "-//slotfinder//availability//EN"

// CalendarICS renders the slots every participant can make as an iCalendar
// document. Meeting slots become timed VEVENTs in UTC; single-day polls
// become all-day VEVENTs. A result without common slots yields a calendar
// with no events.
func CalendarICS(event *store.Event, result *availability.Result, link string, now time.Time) (string, error) {
	if event == nil || result == nil {
		return "", fmt.Errorf("export: event and result are required")
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(event.Title)
	if result.Timezone != "" {
		cal.SetXWRTimezone(result.Timezone)
	}

	for _, slot := range result.Slots {
		if !result.CommonSlots[slot.DateString] {
			continue
		}
		vevent := cal.AddEvent(fmt.Sprintf("%s-%s@slotfinder", event.ID, slot.DateString))
		vevent.SetDtStampTime(now.UTC())
		vevent.SetSummary(event.Title)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if link != "" {
			vevent.SetURL(link)
		}

		if slot.SlotStart != nil && slot.SlotEnd != nil {
			vevent.SetStartAt(slot.SlotStart.UTC())
			vevent.SetEndAt(slot.SlotEnd.UTC())
			continue
		}
		vevent.SetAllDayStartAt(slot.Date)
		vevent.SetAllDayEndAt(slot.Date.AddDate(0, 0, 1))
	}

	return cal.Serialize(), nil
}

// CalendarFileName is the download name for an event's calendar.
func CalendarFileName(event *store.Event) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '_':
			return '-'
		default:
			return -1
		}
	}, event.Title)
	if name == "" {
		name = event.ID
	}
	return name + ".ics"
}
