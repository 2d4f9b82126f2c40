package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Commit outcomes
const (
	CommitSuccess  = "success"
	CommitFailure  = "failure"
	CommitCanceled = "canceled"
)

// Prometheus metric names, without the namespace prefix
const (
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricCommitsTotal        = "commits_total"
	MetricCommitDuration      = "commit_duration_seconds"
	MetricCommitBatchSize     = "commit_batch_size"
	MetricReplaysTotal        = "idempotent_replays_total"
)

// HTTPDurationBuckets are the OTLP histogram boundaries for request latency, in seconds
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics owns a private Prometheus registry with the HTTP and
// unit-of-work collectors of the service. After ExportTo every observation
// is also recorded on OpenTelemetry instruments.
//
// Safe for concurrent use once ExportTo has returned.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry
	otel      *otelInstruments

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	commits         *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	commitBatchSize prometheus.Histogram
	replays         prometheus.Counter
}

// NewMetrics creates the collectors under namespace and registers them,
// together with the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricHTTPRequestsTotal,
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricHTTPRequestDuration,
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricCommitsTotal,
			Help:      "Unit of work commits by outcome.",
		}, []string{"outcome"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricCommitDuration,
			Help:      "Duration of unit of work commits in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		commitBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricCommitBatchSize,
			Help:      "Number of entities written per commit.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricReplaysTotal,
			Help:      "Bulk create requests answered from the idempotency store.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.commits,
		m.commitDuration,
		m.commitBatchSize,
		m.replays,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one handled HTTP request. route is the matched
// route template, never the raw path.
func (m *Metrics) ObserveRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())

	if m.otel != nil {
		attrs := metric.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		m.otel.httpRequests.Add(ctx, 1, attrs)
		m.otel.httpDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// ObserveCommit records one commit attempt of size entities
func (m *Metrics) ObserveCommit(ctx context.Context, outcome string, size int, elapsed time.Duration) {
	m.commits.WithLabelValues(outcome).Inc()
	m.commitDuration.Observe(elapsed.Seconds())
	if outcome == CommitSuccess {
		m.commitBatchSize.Observe(float64(size))
	}

	if m.otel != nil {
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		m.otel.commits.Add(ctx, 1, attrs)
		m.otel.commitDuration.Record(ctx, elapsed.Seconds(), attrs)
		if outcome == CommitSuccess {
			m.otel.commitBatchSize.Record(ctx, int64(size))
		}
	}
}

// ObserveReplay records a replayed bulk create response
func (m *Metrics) ObserveReplay() {
	m.replays.Inc()
	if m.otel != nil {
		m.otel.replays.Add(context.Background(), 1)
	}
}

type otelInstruments struct {
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	commits         metric.Int64Counter
	commitDuration  metric.Float64Histogram
	commitBatchSize metric.Int64Histogram
	replays         metric.Int64Counter
}

// ExportTo creates the OpenTelemetry counterparts of the Prometheus
// collectors on meter. Call it once, before serving traffic.
func (m *Metrics) ExportTo(meter metric.Meter) error {
	name := func(s string) string { return m.namespace + "." + s }
	var (
		in  otelInstruments
		err error
	)
	if in.httpRequests, err = meter.Int64Counter(name("http.server.requests"),
		metric.WithDescription("Total number of HTTP requests handled."),
		metric.WithUnit("{request}"),
	); err != nil {
		return fmt.Errorf("failed to create http request counter: %w", err)
	}
	if in.httpDuration, err = meter.Float64Histogram(name("http.server.request.duration"),
		metric.WithDescription("Duration of HTTP requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HTTPDurationBuckets...),
	); err != nil {
		return fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if in.commits, err = meter.Int64Counter(name("uow.commits"),
		metric.WithDescription("Unit of work commits by outcome."),
		metric.WithUnit("{commit}"),
	); err != nil {
		return fmt.Errorf("failed to create commit counter: %w", err)
	}
	if in.commitDuration, err = meter.Float64Histogram(name("uow.commit.duration"),
		metric.WithDescription("Duration of unit of work commits."),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create commit duration histogram: %w", err)
	}
	if in.commitBatchSize, err = meter.Int64Histogram(name("uow.commit.batch_size"),
		metric.WithDescription("Number of entities written per commit."),
		metric.WithUnit("{entity}"),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32, 64, 128, 256, 512),
	); err != nil {
		return fmt.Errorf("failed to create batch size histogram: %w", err)
	}
	if in.replays, err = meter.Int64Counter(name("idempotency.replays"),
		metric.WithDescription("Bulk create requests answered from the idempotency store."),
		metric.WithUnit("{request}"),
	); err != nil {
		return fmt.Errorf("failed to create replay counter: %w", err)
	}
	m.otel = &in
	return nil
}
