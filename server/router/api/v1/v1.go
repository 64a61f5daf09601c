package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/plugin/ai/cache"
	"github.com/hrygo/slotfinder/plugin/ai/schedule"
	"github.com/hrygo/slotfinder/plugin/markdown"
	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/internal/observability"
	"github.com/hrygo/slotfinder/server/middleware"
	"github.com/hrygo/slotfinder/store"
)

type APIV1Service struct {
	Profile         *profile.Profile
	Store           *store.Store
	Parser          *schedule.Service
	ParseCache      cache.CacheService
	MarkdownService markdown.Service
	Metrics         *observability.Metrics

	parseLimiter *middleware.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, parser *schedule.Service, parseCache cache.CacheService, metrics *observability.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:         profile,
		Store:           store,
		Parser:          parser,
		ParseCache:      parseCache,
		MarkdownService: markdown.NewService(markdown.WithGFM()),
		Metrics:         metrics,
		parseLimiter:    middleware.NewRateLimiter(profile.ParseRateLimit, profile.ParseRateBurst),
	}
}

// RegisterRoutes mounts the v1 API on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/parse", s.ParseAvailability, s.parseLimiter.Middleware())

	g.GET("/events", s.ListEvents)
	g.POST("/events", s.CreateEvent)
	g.GET("/events/:id", s.GetEvent)
	g.PATCH("/events/:id", s.UpdateEvent)
	g.DELETE("/events/:id", s.DeleteEvent)

	g.GET("/events/:id/participants", s.ListParticipants)
	g.POST("/events/:id/participants", s.CreateParticipant, s.parseLimiter.Middleware())
	g.PATCH("/events/:id/participants/:pid", s.UpdateParticipant, s.parseLimiter.Middleware())
	g.DELETE("/events/:id/participants/:pid", s.DeleteParticipant)

	g.GET("/events/:id/availability", s.GetAvailability)
	g.GET("/events/:id/calendar.ics", s.GetCalendar)
	g.GET("/events/:id/feed.atom", s.GetFeed)

	g.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// bind decodes the request body into v, mapping failures to INVALID_ARGUMENT.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "malformed request body")
	}
	return nil
}

// loadEvent fetches the event named by the :id path parameter.
func (s *APIV1Service) loadEvent(ctx context.Context, id string) (*store.Event, error) {
	event, err := s.Store.GetEvent(ctx, id)
	if err != nil {
		return nil, apierrors.Internal("failed to get event", err)
	}
	if event == nil {
		return nil, apierrors.NotFound("event not found").WithContext("event_id", id)
	}
	return event, nil
}

func logger(c echo.Context) *slog.Logger {
	return observability.LoggerFromContext(c.Request().Context())
}

// defaultTimezone returns tz, or the instance default when tz is empty.
func (s *APIV1Service) defaultTimezone(tz string) string {
	if tz != "" {
		return tz
	}
	if s.Profile.DefaultTimezone != "" {
		return s.Profile.DefaultTimezone
	}
	return "UTC"
}

// eventLink is the public URL of an event, or empty without an instance URL.
func (s *APIV1Service) eventLink(id string) string {
	if s.Profile.InstanceURL == "" {
		return ""
	}
	return strings.TrimSuffix(s.Profile.InstanceURL, "/") + "/events/" + id
}

func noContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
