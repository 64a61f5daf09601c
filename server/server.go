package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/plugin/ai"
	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/plugin/ai/cache"
	"github.com/hrygo/slotfinder/plugin/ai/schedule"
	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
	"github.com/hrygo/slotfinder/server/internal/observability"
	"github.com/hrygo/slotfinder/server/middleware"
	apiv1 "github.com/hrygo/slotfinder/server/router/api/v1"
	"github.com/hrygo/slotfinder/store"
)

// Server serves the HTTP API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	httpServer *http.Server
	metrics    *observability.Metrics
	closers    []io.Closer
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      apierrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"requestId,omitempty"`
}

// NewServer wires the parse service, cache and API routes.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
		metrics: observability.NewMetrics(1000),
	}

	parseCache := s.newParseCache(ctx)
	primary, err := newPrimaryParser(profile)
	if err != nil {
		return nil, err
	}
	parser := schedule.NewService(primary, aitime.NewParser(profile.CalendarLocation()), parseCache, schedule.ServiceConfig{
		Timeout:        profile.AIParseTimeout,
		MaxConcurrency: profile.AIMaxConcurrency,
		CacheTTL:       profile.CacheTTL,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestContext(slog.Default(), s.metrics))
	e.GET("/healthz", s.healthz)

	apiv1.NewAPIV1Service(profile, store, parser, parseCache, s.metrics).RegisterRoutes(e)
	s.echoServer = e
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the profile's address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.echoServer,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "error", err)
		}
	}()
	slog.Info("slotfinder server started", "addr", listener.Addr().String(), "mode", s.Profile.Mode)
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones and releases
// the cache and store.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown http server", "error", err)
		}
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("slotfinder server stopped")
}

func (s *Server) healthz(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		return apierrors.Wrap(err, apierrors.ErrCodeServiceUnavailable, "database unreachable")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.Profile.Version})
}

// newParseCache prefers Redis when configured and falls back to an
// in-process LRU when it is unset or unreachable.
func (s *Server) newParseCache(ctx context.Context) cache.CacheService {
	if s.Profile.CacheRedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:       s.Profile.CacheRedisAddr,
			Password:   s.Profile.CacheRedisPassword,
			DB:         s.Profile.CacheRedisDB,
			DefaultTTL: s.Profile.CacheTTL,
		})
		if err == nil {
			s.closers = append(s.closers, redisCache)
			return redisCache
		}
		slog.Warn("redis cache unavailable, using in-memory cache", "addr", s.Profile.CacheRedisAddr, "error", err)
	}

	cfg := cache.DefaultServiceConfig()
	if s.Profile.CacheTTL > 0 {
		cfg.DefaultTTL = s.Profile.CacheTTL
	}
	memory := cache.NewService(cfg)
	s.closers = append(s.closers, memory)
	return memory
}

// newPrimaryParser returns the LLM parser, or nil when AI is disabled.
func newPrimaryParser(profile *profile.Profile) (schedule.AvailabilityParser, error) {
	cfg := ai.NewConfigFromProfile(profile)
	if !cfg.Enabled {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	llm, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM service: %w", err)
	}
	slog.Info("LLM availability parsing enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return schedule.NewLLMParser(llm, profile.CalendarLocation()), nil
}

// errorHandler renders APIErrors and echo errors as ErrorResponse.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{
		Code:      apierrors.ErrCodeInternal,
		Message:   "internal error",
		RequestID: c.Response().Header().Get(middleware.RequestIDHeader),
	}
	status := http.StatusInternalServerError

	var apiErr *apierrors.APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus()
		resp.Code = apiErr.Code
		resp.Message = apiErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		resp.Code = codeForStatus(status)
		resp.Message = fmt.Sprint(httpErr.Message)
	}

	log := observability.LoggerFromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", observability.LogFieldErrorCode, string(resp.Code), "error", err)
	} else {
		log.Debug("request rejected", observability.LogFieldErrorCode, string(resp.Code), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		log.Warn("failed to write error response", "error", err)
	}
}

func codeForStatus(status int) apierrors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apierrors.ErrCodeInvalidArgument
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apierrors.ErrCodeNotFound
	case http.StatusTooManyRequests:
		return apierrors.ErrCodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		return apierrors.ErrCodeServiceUnavailable
	case http.StatusGatewayTimeout:
		return apierrors.ErrCodeTimeout
	default:
		return apierrors.ErrCodeInternal
	}
}
