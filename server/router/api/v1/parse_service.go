package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slotfinder/plugin/ai/schedule"
	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/internal/observability"
	"github.com/hrygo/slotfinder/server/timezone"
)

// ParseAvailabilityRequest is the body of POST /api/v1/parse.
type ParseAvailabilityRequest struct {
	RawText   string `json:"rawText"`
	IsMeeting bool   `json:"isMeeting"`
	Timezone  string `json:"timezone"`
}

// ParseAvailability turns free text into parsed intervals.
// POST /api/v1/parse
func (s *APIV1Service) ParseAvailability(c echo.Context) error {
	var req ParseAvailabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.RawText) == "" {
		return apierrors.InvalidArgument("rawText is required")
	}
	tz := s.defaultTimezone(req.Timezone)
	if !timezone.IsValidTimezone(tz) {
		return apierrors.InvalidArgument("unknown timezone").WithContext("timezone", tz)
	}

	res := s.parse(c, schedule.ParseRequest{Text: req.RawText, IsMeeting: req.IsMeeting, Timezone: tz})
	return c.JSON(http.StatusOK, res)
}

// parse runs the parse service and records which path answered.
func (s *APIV1Service) parse(c echo.Context, req schedule.ParseRequest) *schedule.ParseResult {
	res := s.Parser.Parse(c.Request().Context(), req)
	if s.Metrics != nil {
		s.Metrics.RecordParse(string(res.Source))
	}
	logger(c).Debug("availability parsed",
		observability.LogFieldSource, string(res.Source),
		"intervals", len(res.Intervals))
	return res
}
