package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/internal/observability"
	"github.com/hrygo/slotfinder/server/service/availability"
	"github.com/hrygo/slotfinder/server/service/export"
	"github.com/hrygo/slotfinder/server/timezone"
	"github.com/hrygo/slotfinder/store"
)

const bestSlotCount = 5

// AvailabilityResponse is the aggregated grid plus derived summaries.
type AvailabilityResponse struct {
	*availability.Result
	CommonSlotKeys []string                `json:"commonSlotKeys"`
	BestSlots      []availability.DateInfo `json:"bestSlots"`
}

// GetAvailability aggregates an event's responses in the viewer's zone.
// GET /api/v1/events/:id/availability?timezone=
func (s *APIV1Service) GetAvailability(c echo.Context) error {
	event, participants, result, err := s.aggregate(c)
	if err != nil {
		return err
	}
	logger(c).Debug("availability aggregated",
		observability.LogFieldEventID, event.ID,
		"participants", len(participants),
		"slots", len(result.Slots))
	return c.JSON(http.StatusOK, &AvailabilityResponse{
		Result:         result,
		CommonSlotKeys: result.CommonSlotKeys(),
		BestSlots:      result.BestSlots(bestSlotCount),
	})
}

// GetCalendar exports the slots everyone can make as iCalendar.
// GET /api/v1/events/:id/calendar.ics?timezone=
func (s *APIV1Service) GetCalendar(c echo.Context) error {
	event, _, result, err := s.aggregate(c)
	if err != nil {
		return err
	}
	body, err := export.CalendarICS(event, result, s.eventLink(event.ID), time.Now())
	if err != nil {
		return apierrors.Internal("failed to render calendar", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.CalendarFileName(event)+`"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// GetFeed exports the event's responses as an Atom feed.
// GET /api/v1/events/:id/feed.atom
func (s *APIV1Service) GetFeed(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	participants, err := s.Store.ListParticipants(ctx, &store.FindParticipant{EventID: &event.ID})
	if err != nil {
		return apierrors.Internal("failed to list participants", err)
	}
	body, err := export.ResponsesAtom(event, participants, s.eventLink(event.ID))
	if err != nil {
		return apierrors.Internal("failed to render feed", err)
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(body))
}

// aggregate loads the event named by :id with its participants and runs the
// aggregator in the zone named by the timezone query parameter.
func (s *APIV1Service) aggregate(c echo.Context) (*store.Event, []*store.Participant, *availability.Result, error) {
	ctx := c.Request().Context()
	viewer := c.QueryParam("timezone")
	if viewer != "" && !timezone.IsValidTimezone(viewer) {
		return nil, nil, nil, apierrors.InvalidArgument("unknown timezone").WithContext("timezone", viewer)
	}

	event, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return nil, nil, nil, err
	}
	participants, err := s.Store.ListParticipants(ctx, &store.FindParticipant{EventID: &event.ID})
	if err != nil {
		return nil, nil, nil, apierrors.Internal("failed to list participants", err)
	}

	result, err := availability.Aggregate(
		&availability.Event{IsMeeting: event.IsMeeting, MeetingDuration: event.MeetingDuration},
		toAvailabilityParticipants(participants),
		s.aggregateOptions(ctx, viewer),
	)
	if err != nil {
		return nil, nil, nil, apierrors.Internal("failed to aggregate availability", err)
	}
	return event, participants, result, nil
}

func (s *APIV1Service) aggregateOptions(ctx context.Context, viewer string) availability.Options {
	return availability.Options{
		ViewerTimezone:   viewer,
		FallbackTimezone: s.defaultTimezone(""),
		CalendarLocation: s.Profile.CalendarLocation(),
		Logger:           observability.LoggerFromContext(ctx),
	}
}

func toAvailabilityParticipants(participants []*store.Participant) []availability.Participant {
	out := make([]availability.Participant, 0, len(participants))
	for _, p := range participants {
		out = append(out, availability.Participant{
			ID:        p.ID,
			Name:      p.Name,
			Timezone:  p.Timezone,
			Intervals: p.ParsedDates,
		})
	}
	return out
}
