package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/plugin/ai/schedule"
	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/timezone"
	"github.com/hrygo/slotfinder/store"
)

// ParticipantResponse is the API shape of a participant.
type ParticipantResponse struct {
	ID           string            `json:"id"`
	EventID      string            `json:"eventId"`
	Name         string            `json:"name"`
	RawDateInput string            `json:"rawDateInput"`
	ParsedDates  []aitime.Interval `json:"parsedDates"`
	Timezone     string            `json:"timezone"`
	// Source is set when the server parsed RawDateInput for this request.
	Source    schedule.Source `json:"source,omitempty"`
	CreatedTs int64           `json:"createdTs"`
	UpdatedTs int64           `json:"updatedTs"`
}

// CreateParticipantRequest is the body of POST /api/v1/events/:id/participants.
// When ParsedDates is absent the server parses RawDateInput.
type CreateParticipantRequest struct {
	Name         string             `json:"name"`
	RawDateInput string             `json:"rawDateInput"`
	ParsedDates  *[]aitime.Interval `json:"parsedDates"`
	Timezone     string             `json:"timezone"`
}

// UpdateParticipantRequest is the body of PATCH
// /api/v1/events/:id/participants/:pid. Changing the text or zone without
// sending ParsedDates re-parses the text.
type UpdateParticipantRequest struct {
	Name         *string            `json:"name"`
	RawDateInput *string            `json:"rawDateInput"`
	ParsedDates  *[]aitime.Interval `json:"parsedDates"`
	Timezone     *string            `json:"timezone"`
}

// ListParticipantsResponse lists an event's participants in response order.
type ListParticipantsResponse struct {
	Participants []*ParticipantResponse `json:"participants"`
}

// ListParticipants lists an event's participants.
// GET /api/v1/events/:id/participants
func (s *APIV1Service) ListParticipants(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	participants, err := s.Store.ListParticipants(ctx, &store.FindParticipant{EventID: &event.ID})
	if err != nil {
		return apierrors.Internal("failed to list participants", err)
	}

	resp := &ListParticipantsResponse{Participants: make([]*ParticipantResponse, 0, len(participants))}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, convertParticipant(p, ""))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateParticipant records a response to an event.
// POST /api/v1/events/:id/participants
func (s *APIV1Service) CreateParticipant(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var req CreateParticipantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apierrors.InvalidArgument("name is required")
	}
	tz := s.defaultTimezone(req.Timezone)
	if !timezone.IsValidTimezone(tz) {
		return apierrors.InvalidArgument("unknown timezone").WithContext("timezone", tz)
	}

	var (
		parsed []aitime.Interval
		source schedule.Source
	)
	if req.ParsedDates != nil {
		if err := validateIntervals(*req.ParsedDates); err != nil {
			return err
		}
		parsed = *req.ParsedDates
	} else {
		parsed, source = s.parseFor(c, event, req.RawDateInput, tz)
	}

	participant, err := s.Store.CreateParticipant(ctx, &store.Participant{
		EventID:      event.ID,
		Name:         req.Name,
		RawDateInput: req.RawDateInput,
		ParsedDates:  parsed,
		Timezone:     tz,
	})
	if err != nil {
		return apierrors.Internal("failed to create participant", err)
	}
	logger(c).Info("participant added",
		"event_id", event.ID,
		"participant_id", participant.ID,
		"intervals", len(participant.ParsedDates))
	return c.JSON(http.StatusCreated, convertParticipant(participant, source))
}

// UpdateParticipant patches a response.
// PATCH /api/v1/events/:id/participants/:pid
func (s *APIV1Service) UpdateParticipant(c echo.Context) error {
	ctx := c.Request().Context()
	event, current, err := s.loadParticipant(ctx, c.Param("id"), c.Param("pid"))
	if err != nil {
		return err
	}

	var req UpdateParticipantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	update := &store.UpdateParticipant{
		ID:           current.ID,
		RawDateInput: req.RawDateInput,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apierrors.InvalidArgument("name must not be empty")
		}
		update.Name = &name
	}

	tz := current.Timezone
	if req.Timezone != nil {
		tz = s.defaultTimezone(*req.Timezone)
		if !timezone.IsValidTimezone(tz) {
			return apierrors.InvalidArgument("unknown timezone").WithContext("timezone", tz)
		}
		update.Timezone = &tz
	}

	var source schedule.Source
	switch {
	case req.ParsedDates != nil:
		if err := validateIntervals(*req.ParsedDates); err != nil {
			return err
		}
		update.ParsedDates = req.ParsedDates
	case req.RawDateInput != nil || req.Timezone != nil:
		raw := current.RawDateInput
		if req.RawDateInput != nil {
			raw = *req.RawDateInput
		}
		var parsed []aitime.Interval
		parsed, source = s.parseFor(c, event, raw, tz)
		update.ParsedDates = &parsed
	}

	participant, err := s.Store.UpdateParticipant(ctx, update)
	if err != nil {
		return apierrors.Internal("failed to update participant", err)
	}
	return c.JSON(http.StatusOK, convertParticipant(participant, source))
}

// DeleteParticipant removes a response.
// DELETE /api/v1/events/:id/participants/:pid
func (s *APIV1Service) DeleteParticipant(c echo.Context) error {
	ctx := c.Request().Context()
	_, participant, err := s.loadParticipant(ctx, c.Param("id"), c.Param("pid"))
	if err != nil {
		return err
	}
	if err := s.Store.DeleteParticipant(ctx, &store.DeleteParticipant{ID: participant.ID}); err != nil {
		return apierrors.Internal("failed to delete participant", err)
	}
	return noContent(c)
}

// loadParticipant fetches a participant and checks it belongs to the event.
func (s *APIV1Service) loadParticipant(ctx context.Context, eventID, participantID string) (*store.Event, *store.Participant, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	participant, err := s.Store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, nil, apierrors.Internal("failed to get participant", err)
	}
	if participant == nil || participant.EventID != event.ID {
		return nil, nil, apierrors.NotFound("participant not found").WithContext("participant_id", participantID)
	}
	return event, participant, nil
}

// parseFor parses raw in the event's mode. Empty text yields no intervals.
func (s *APIV1Service) parseFor(c echo.Context, event *store.Event, raw, tz string) ([]aitime.Interval, schedule.Source) {
	if strings.TrimSpace(raw) == "" {
		return []aitime.Interval{}, ""
	}
	res := s.parse(c, schedule.ParseRequest{Text: raw, IsMeeting: event.IsMeeting, Timezone: tz})
	return res.Intervals, res.Source
}

func validateIntervals(intervals []aitime.Interval) error {
	for i, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, fmt.Sprintf("parsedDates[%d] is invalid", i))
		}
	}
	return nil
}

func convertParticipant(p *store.Participant, source schedule.Source) *ParticipantResponse {
	return &ParticipantResponse{
		ID:           p.ID,
		EventID:      p.EventID,
		Name:         p.Name,
		RawDateInput: p.RawDateInput,
		ParsedDates:  p.ParsedDates,
		Timezone:     p.Timezone,
		Source:       source,
		CreatedTs:    p.CreatedTs,
		UpdatedTs:    p.UpdatedTs,
	}
}
