package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slotfinder/plugin/ai/cache"
	apierrors "github.com/hrygo/slotfinder/server/internal/errors"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64            `json:"total_requests"`
	SuccessRate   float64          `json:"success_rate"`
	AvgLatencyMs  int64            `json:"avg_latency_ms"`
	P50LatencyMs  int64            `json:"p50_latency_ms"`
	P95LatencyMs  int64            `json:"p95_latency_ms"`
	ErrorCount    int64            `json:"error_count"`
	ParseSources  map[string]int64 `json:"parse_sources"`
	// SampleSize is how many recent requests the percentiles cover.
	SampleSize int `json:"sample_size"`
	// ParseCache is reported for the in-process cache only.
	ParseCache *ParseCacheStats `json:"parse_cache,omitempty"`
}

// ParseCacheStats describes the LLM answer cache.
type ParseCacheStats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// GetMetricsOverview returns request and parse counters since start-up.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	if s.Metrics == nil {
		return apierrors.ServiceUnavailable("metrics are not enabled")
	}
	snapshot := s.Metrics.Snapshot()

	var totalMs, count int64
	for _, route := range snapshot.Routes {
		totalMs += route.TotalDuration
		count += route.RequestCount
	}
	var avg int64
	if count > 0 {
		avg = totalMs / count
	}

	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		ParseCache:    s.parseCacheStats(),
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		AvgLatencyMs:  avg,
		P50LatencyMs:  snapshot.P50.Milliseconds(),
		P95LatencyMs:  snapshot.P95.Milliseconds(),
		ErrorCount:    snapshot.RequestFailed,
		ParseSources:  snapshot.ParseSources,
		SampleSize:    snapshot.DurationCount,
	})
}

func (s *APIV1Service) parseCacheStats() *ParseCacheStats {
	reporter, ok := s.ParseCache.(cache.StatsReporter)
	if !ok {
		return nil
	}
	stats := reporter.Stats()
	resp := &ParseCacheStats{Entries: stats.Size, Hits: stats.Hits, Misses: stats.Misses}
	if total := stats.Hits + stats.Misses; total > 0 {
		resp.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return resp
}
