// Package availability aggregates participants' parsed intervals into a
// shared grid of dates (single-day polls) or fixed-duration slots (meeting
// finders), expressed in one viewer timezone.
//
// Aggregation is pure: every call works on its own inputs and keeps no
// state, so it is safe to recompute on every request.
package availability

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
)

const (
	// DefaultMeetingDuration is used when an event carries no positive duration.
	DefaultMeetingDuration = 30

	// Bounds used when no participant submitted a range.
	DefaultEarliestMinute = 7 * 60
	DefaultLatestMinute   = 19 * 60

	// MinSpanMinutes is the narrowest day window before it is widened by
	// WidenMinutes on both sides.
	MinSpanMinutes = 120
	WidenMinutes   = 60

	// GridMinutes is the boundary the day window snaps to.
	GridMinutes = 15
)

// Event is the part of an event the aggregator needs.
type Event struct {
	IsMeeting bool
	// MeetingDuration is the slot length in minutes.
	MeetingDuration int
}

// Participant is one respondent's parsed availability.
type Participant struct {
	ID   string
	Name string
	// Timezone is the participant's default zone for records without one.
	Timezone  string
	Intervals []aitime.Interval
}

// Key identifies the participant in the availability map.
func (p Participant) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

// Options control how records are interpreted and displayed.
type Options struct {
	// ViewerTimezone is the zone slots and dates are expressed in.
	ViewerTimezone string
	// FallbackTimezone replaces missing or invalid zones everywhere.
	FallbackTimezone string
	// CalendarLocation anchors date-only records (default: time.Local).
	CalendarLocation *time.Location
	// Logger receives warnings about malformed records (default: slog.Default()).
	Logger *slog.Logger
}

// Status is a participant's answer for one slot.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// DateInfo is one column of the grid: a date, or a slot on a date.
type DateInfo struct {
	// Date is local midnight of the column's day.
	Date time.Time `json:"date"`
	// DateString is the column key: YYYY-MM-DD, or YYYY-MM-DD-HH-MM for slots.
	DateString    string `json:"dateString"`
	FormattedDate string `json:"formattedDate"`

	// Meeting slots only.
	SlotStart *time.Time `json:"slotStart,omitempty"`
	SlotEnd   *time.Time `json:"slotEnd,omitempty"`

	Timezone string `json:"timezone"`
}

// Result is the aggregated grid.
type Result struct {
	Slots []DateInfo `json:"slots"`
	// Availability holds, per participant key, one Status per entry of Slots.
	Availability map[string][]Status `json:"availabilityByParticipant"`
	// AvailableCounts maps slot keys to the number of available participants.
	AvailableCounts map[string]int `json:"availableCounts"`
	// Percentages maps slot keys to the share of available participants (0-100).
	Percentages map[string]float64 `json:"percentages"`
	// CommonSlots contains the keys every participant is available for.
	CommonSlots map[string]bool `json:"commonSlots"`

	ParticipantCount int    `json:"participantCount"`
	Timezone         string `json:"timezone"`
	IsMeeting        bool   `json:"isMeeting"`
}

func newResult(tz string, isMeeting bool) *Result {
	return &Result{
		Slots:           []DateInfo{},
		Availability:    map[string][]Status{},
		AvailableCounts: map[string]int{},
		Percentages:     map[string]float64{},
		CommonSlots:     map[string]bool{},
		Timezone:        tz,
		IsMeeting:       isMeeting,
	}
}

// CommonSlotKeys returns the common slot keys in grid order.
func (r *Result) CommonSlotKeys() []string {
	keys := make([]string, 0, len(r.CommonSlots))
	for _, slot := range r.Slots {
		if r.CommonSlots[slot.DateString] {
			keys = append(keys, slot.DateString)
		}
	}
	return keys
}

// BestSlots returns up to n slots with at least one available participant,
// most popular first and earliest first among equals.
func (r *Result) BestSlots(n int) []DateInfo {
	candidates := make([]DateInfo, 0, len(r.Slots))
	for _, slot := range r.Slots {
		if r.AvailableCounts[slot.DateString] > 0 {
			candidates = append(candidates, slot)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return r.AvailableCounts[candidates[i].DateString] > r.AvailableCounts[candidates[j].DateString]
	})
	if n >= 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// finish derives counts, percentages and common slots from the
// per-participant vectors, one per participant in input order.
func (r *Result) finish(vectors [][]Status) {
	total := len(vectors)
	r.ParticipantCount = total
	for i, slot := range r.Slots {
		count := 0
		for _, statuses := range vectors {
			if statuses[i] == StatusAvailable {
				count++
			}
		}
		r.AvailableCounts[slot.DateString] = count
		r.Percentages[slot.DateString] = 0
		if total > 0 {
			r.Percentages[slot.DateString] = float64(count) * 100 / float64(total)
		}
		if total > 0 && count == total {
			r.CommonSlots[slot.DateString] = true
		}
	}
}
