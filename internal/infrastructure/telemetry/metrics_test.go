package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// testTelemetryConfig points every signal at a local collector
func testTelemetryConfig(enabled bool) config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:           enabled,
		MetricsEnabled:    enabled,
		LogsEnabled:       enabled,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "course-library-test",
		Insecure:          true,
		MetricsInterval:   time.Minute,
	}
}

func restoreGlobalMeterProvider(t *testing.T) {
	original := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(original) })
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics("library")
	ctx := context.Background()

	m.ObserveRequest(ctx, http.MethodPost, "/api/v1/authorcollections", http.StatusCreated, 20*time.Millisecond)
	m.ObserveRequest(ctx, http.MethodPost, "/api/v1/authorcollections", http.StatusCreated, 30*time.Millisecond)
	m.ObserveRequest(ctx, http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/v1/authorcollections", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpDuration))
}

func TestMetrics_ObserveCommit(t *testing.T) {
	m := NewMetrics("library")
	ctx := context.Background()

	m.ObserveCommit(ctx, CommitSuccess, 4, time.Millisecond)
	m.ObserveCommit(ctx, CommitFailure, 2, time.Millisecond)
	m.ObserveReplay()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues(CommitSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues(CommitFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("library")
	m.ObserveCommit(context.Background(), CommitSuccess, 1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "library_commits_total{outcome=\"success\"} 1")
	assert.Contains(t, body, "library_commit_batch_size_bucket")
	assert.Contains(t, body, "go_goroutines")
}

// collect gathers everything recorded on reader, keyed by instrument name
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_ExportTo(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m := NewMetrics("library")
	require.NoError(t, m.ExportTo(provider.Meter(MeterName)))

	ctx := context.Background()
	m.ObserveRequest(ctx, http.MethodPost, "/api/v1/authorcollections", http.StatusCreated, 20*time.Millisecond)
	m.ObserveCommit(ctx, CommitSuccess, 3, time.Millisecond)
	m.ObserveCommit(ctx, CommitFailure, 2, time.Millisecond)
	m.ObserveReplay()

	got := collect(t, reader)

	requests, ok := got["library.http.server.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	assert.Equal(t, int64(1), requests.DataPoints[0].Value)
	route, _ := requests.DataPoints[0].Attributes.Value(attribute.Key("http.route"))
	assert.Equal(t, "/api/v1/authorcollections", route.AsString())

	commits, ok := got["library.uow.commits"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, commits.DataPoints, 2, "one series per outcome")

	sizes, ok := got["library.uow.commit.batch_size"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, sizes.DataPoints, 1)
	assert.Equal(t, uint64(1), sizes.DataPoints[0].Count, "only successful commits are sized")
	assert.Equal(t, int64(3), sizes.DataPoints[0].Sum)

	replays, ok := got["library.idempotency.replays"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, replays.DataPoints, 1)
	assert.Equal(t, int64(1), replays.DataPoints[0].Value)

	assert.Contains(t, got, "library.http.server.request.duration")
	assert.Contains(t, got, "library.uow.commit.duration")
}

func TestNewMeterProvider(t *testing.T) {
	t.Run("disabled hands out a no-op meter", func(t *testing.T) {
		mp, err := NewMeterProvider(context.Background(), testTelemetryConfig(false), "test", zap.NewNop())
		require.NoError(t, err)

		assert.False(t, mp.Enabled())
		assert.NotNil(t, mp.Meter())
		assert.NoError(t, mp.Shutdown(context.Background()))
	})

	t.Run("enabled installs an OTLP pipeline", func(t *testing.T) {
		restoreGlobalMeterProvider(t)

		mp, err := NewMeterProvider(context.Background(), testTelemetryConfig(true), "test", zap.NewNop())
		require.NoError(t, err)

		assert.True(t, mp.Enabled())
		require.NoError(t, NewMetrics("library").ExportTo(mp.Meter()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = mp.Shutdown(ctx)
	})
}
