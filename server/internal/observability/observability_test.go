package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rc := NewRequestContextWithID(logger, "req-1", "/api/v1/parse")
	rc.Info("parsed", slog.String(LogFieldSource, "llm"))
	rc.Error("failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "route=/api/v1/parse")
	assert.Contains(t, out, "source=llm")
	assert.Contains(t, out, "error=boom")
}

func TestRequestContext_GeneratesID(t *testing.T) {
	rc := NewRequestContext(nil, "/healthz")
	assert.Len(t, rc.RequestID, 36)
	assert.NotNil(t, rc.Logger)
	assert.GreaterOrEqual(t, rc.DurationMs(), int64(0))
}

func TestRequestContext_Context(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.NotNil(t, LoggerFromContext(context.Background()))

	rc := NewRequestContext(slog.Default(), "/x")
	ctx := WithRequestContext(context.Background(), rc)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics(10)
	m.RecordRequest("/a", 10*time.Millisecond, false)
	m.RecordRequest("/a", 30*time.Millisecond, true)
	m.RecordRequest("/b", 20*time.Millisecond, false)
	m.RecordParse("llm")
	m.RecordParse("rules")
	m.RecordParse("rules")

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	assert.InDelta(t, 66.66, s.SuccessRate(), 0.01)
	assert.Equal(t, int64(2), s.Routes["/a"].RequestCount)
	assert.Equal(t, int64(20), s.Routes["/a"].AverageDuration)
	assert.Equal(t, int64(1), s.Routes["/a"].ErrorCount)
	assert.Equal(t, int64(2), s.ParseSources["rules"])
	assert.Equal(t, 20*time.Millisecond, s.P50)
	assert.Equal(t, 30*time.Millisecond, s.P95)
	assert.Equal(t, 3, s.DurationCount)

	m.Reset()
	s = m.Snapshot()
	assert.Equal(t, int64(0), s.RequestTotal)
	assert.Equal(t, 100.0, s.SuccessRate())
	assert.Empty(t, s.Routes)
}

func TestMetrics_DurationWindow(t *testing.T) {
	m := NewMetrics(2)
	for i := 1; i <= 5; i++ {
		m.RecordRequest("/a", time.Duration(i)*time.Millisecond, false)
	}
	s := m.Snapshot()
	assert.Equal(t, 2, s.DurationCount)
	assert.Equal(t, 4*time.Millisecond, s.P50)
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics(100)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest("/a", time.Millisecond, false)
			m.RecordParse("cache")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(20), m.GetRequestTotal())
	assert.Equal(t, int64(0), m.GetRequestFailed())
	assert.Equal(t, int64(20), m.Snapshot().ParseSources["cache"])
}
