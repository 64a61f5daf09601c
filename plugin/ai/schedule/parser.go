package schedule

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/plugin/ai/cache"
	"github.com/hrygo/slotfinder/plugin/ai/timeout"
	"github.com/hrygo/slotfinder/server/timezone"
)

// ServiceConfig configures the parse service.
type ServiceConfig struct {
	// Timeout bounds the single LLM attempt (default: timeout.LLMParseTimeout).
	Timeout time.Duration
	// MaxConcurrency caps in-flight LLM calls (default: 4).
	MaxConcurrency int
	// CacheTTL is how long LLM answers are reused (default: 10 minutes).
	CacheTTL time.Duration
}

// Service parses availability text. The LLM gets exactly one attempt; any
// failure is answered by the rule-based parser without retry or merging.
type Service struct {
	primary AvailabilityParser // nil when AI is disabled
	rules   *aitime.Parser
	cache   cache.CacheService // nil disables caching

	sem      *semaphore.Weighted
	timeout  time.Duration
	cacheTTL time.Duration
}

// NewService creates a parse service. primary and cache may be nil.
func NewService(primary AvailabilityParser, rules *aitime.Parser, c cache.CacheService, cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeout.LLMParseTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if rules == nil {
		rules = aitime.NewParser(nil)
	}

	return &Service{
		primary:  primary,
		rules:    rules,
		cache:    c,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
	}
}

// Rules returns the rule-based parser backing the service.
func (s *Service) Rules() *aitime.Parser {
	return s.rules
}

// Parse never fails: when every path comes up empty the result simply has
// no intervals.
func (s *Service) Parse(ctx context.Context, req ParseRequest) *ParseResult {
	if req.Timezone == "" {
		req.Timezone = timezone.TimezoneUTC
	}
	if strings.TrimSpace(req.Text) == "" {
		return &ParseResult{Intervals: []aitime.Interval{}, Source: SourceRules}
	}

	if s.primary != nil && len(req.Text) <= MaxInputLength {
		key := s.cacheKey(req)
		if res, ok := s.fromCache(ctx, key); ok {
			return res
		}

		res, err := s.tryPrimary(ctx, req)
		if err == nil {
			s.toCache(ctx, key, res)
			return res
		}
		slog.Warn("LLM availability parse failed, using rules",
			"mode", req.Mode().String(),
			"timezone", req.Timezone,
			"input", truncateForLog(req.Text, timeout.MaxTruncateLength),
			"error", err)
	}

	return &ParseResult{
		Intervals: s.rules.Parse(req.Text, req.Mode(), req.Timezone),
		Source:    SourceRules,
	}
}

// tryPrimary makes the single bounded LLM attempt.
func (s *Service) tryPrimary(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	res, err := s.primary.Parse(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Debug("LLM availability parse completed",
		"mode", req.Mode().String(),
		"intervals", len(res.Intervals),
		"latency_ms", time.Since(start).Milliseconds())
	return res, nil
}

// cacheKey covers today's date so relative answers ("next friday") expire
// with the day they were resolved against.
func (s *Service) cacheKey(req ParseRequest) string {
	loc, err := timezone.ParseTimezone(req.Timezone)
	if err != nil {
		loc = timezone.UTC
	}
	today := s.rules.Now().In(loc).Format("2006-01-02")
	return cache.ParseKey(req.Mode().String(), req.Timezone, today, req.Text)
}

func (s *Service) fromCache(ctx context.Context, key string) (*ParseResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var res ParseResult
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Warn("discarding unreadable cached parse result", "key", key, "error", err)
		_ = s.cache.Invalidate(ctx, key)
		return nil, false
	}
	res.Source = SourceCache
	return &res, true
}

func (s *Service) toCache(ctx context.Context, key string, res *ParseResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.Warn("failed to cache parse result", "key", key, "error", err)
	}
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
