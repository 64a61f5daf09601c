package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/service/availability"
	"github.com/hrygo/slotfinder/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// EventResponse is the API shape of an event.
type EventResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"descriptionHtml"`
	IsMeeting       bool   `json:"isMeeting"`
	MeetingDuration int    `json:"meetingDuration"`
	CreatorName     string `json:"creatorName"`
	CreatedTs       int64  `json:"createdTs"`
	UpdatedTs       int64  `json:"updatedTs"`
}

// CreateEventRequest is the body of POST /api/v1/events.
type CreateEventRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	IsMeeting       bool   `json:"isMeeting"`
	MeetingDuration int    `json:"meetingDuration"`
	CreatorName     string `json:"creatorName"`
}

// UpdateEventRequest is the body of PATCH /api/v1/events/:id. Absent fields
// are left unchanged.
type UpdateEventRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	IsMeeting       *bool   `json:"isMeeting"`
	MeetingDuration *int    `json:"meetingDuration"`
	CreatorName     *string `json:"creatorName"`
}

// ListEventsResponse is a page of events.
type ListEventsResponse struct {
	Events []*EventResponse `json:"events"`
}

// CreateEvent creates an event.
// POST /api/v1/events
func (s *APIV1Service) CreateEvent(c echo.Context) error {
	var req CreateEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return apierrors.InvalidArgument("title is required")
	}
	duration, err := meetingDuration(req.IsMeeting, req.MeetingDuration)
	if err != nil {
		return err
	}

	event, err := s.Store.CreateEvent(c.Request().Context(), &store.Event{
		Title:           req.Title,
		Description:     req.Description,
		IsMeeting:       req.IsMeeting,
		MeetingDuration: duration,
		CreatorName:     req.CreatorName,
	})
	if err != nil {
		return apierrors.Internal("failed to create event", err)
	}
	logger(c).Info("event created", "event_id", event.ID, "is_meeting", event.IsMeeting)

	resp, err := s.convertEvent(event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListEvents lists events, newest first.
// GET /api/v1/events?limit=&offset=
func (s *APIV1Service) ListEvents(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	limit = min(max(limit, 1), maxPageSize)

	events, err := s.Store.ListEvents(c.Request().Context(), &store.FindEvent{Limit: &limit, Offset: &offset})
	if err != nil {
		return apierrors.Internal("failed to list events", err)
	}

	resp := &ListEventsResponse{Events: make([]*EventResponse, 0, len(events))}
	for _, event := range events {
		converted, err := s.convertEvent(event)
		if err != nil {
			return err
		}
		resp.Events = append(resp.Events, converted)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetEvent returns one event.
// GET /api/v1/events/:id
func (s *APIV1Service) GetEvent(c echo.Context) error {
	event, err := s.loadEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp, err := s.convertEvent(event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateEvent patches an event.
// PATCH /api/v1/events/:id
func (s *APIV1Service) UpdateEvent(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	var req UpdateEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	update := &store.UpdateEvent{
		ID:          current.ID,
		Description: req.Description,
		IsMeeting:   req.IsMeeting,
		CreatorName: req.CreatorName,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return apierrors.InvalidArgument("title must not be empty")
		}
		update.Title = &title
	}
	if req.MeetingDuration != nil || req.IsMeeting != nil {
		isMeeting := current.IsMeeting
		if req.IsMeeting != nil {
			isMeeting = *req.IsMeeting
		}
		raw := current.MeetingDuration
		if req.MeetingDuration != nil {
			raw = *req.MeetingDuration
		}
		duration, err := meetingDuration(isMeeting, raw)
		if err != nil {
			return err
		}
		update.MeetingDuration = &duration
	}

	event, err := s.Store.UpdateEvent(ctx, update)
	if err != nil {
		return apierrors.Internal("failed to update event", err)
	}
	resp, err := s.convertEvent(event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteEvent removes an event and its participants.
// DELETE /api/v1/events/:id
func (s *APIV1Service) DeleteEvent(c echo.Context) error {
	ctx := c.Request().Context()
	event, err := s.loadEvent(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.Store.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID}); err != nil {
		return apierrors.Internal("failed to delete event", err)
	}
	logger(c).Info("event deleted", "event_id", event.ID)
	return noContent(c)
}

func (s *APIV1Service) convertEvent(event *store.Event) (*EventResponse, error) {
	html, err := s.MarkdownService.RenderHTML(event.Description)
	if err != nil {
		return nil, apierrors.Internal("failed to render description", err)
	}
	return &EventResponse{
		ID:              event.ID,
		Title:           event.Title,
		Description:     event.Description,
		DescriptionHTML: html,
		IsMeeting:       event.IsMeeting,
		MeetingDuration: event.MeetingDuration,
		CreatorName:     event.CreatorName,
		CreatedTs:       event.CreatedTs,
		UpdatedTs:       event.UpdatedTs,
	}, nil
}

// meetingDuration validates a meeting's slot length. Meetings without one
// get the default; polls carry zero.
func meetingDuration(isMeeting bool, minutes int) (int, error) {
	if !isMeeting {
		return 0, nil
	}
	if minutes < 0 || minutes > 24*60 {
		return 0, apierrors.InvalidArgument("meetingDuration must be between 1 and 1440 minutes")
	}
	if minutes == 0 {
		return availability.DefaultMeetingDuration, nil
	}
	return minutes, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apierrors.InvalidArgument(name + " must be a non-negative integer")
	}
	return v, nil
}
