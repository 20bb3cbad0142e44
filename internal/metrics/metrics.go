// Package metrics holds the Prometheus collectors of the service on a
// private registry served at /metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const namespace = "viaggi"

type Metrics struct {
	registry    *prometheus.Registry
	keys        *prometheus.CounterVec
	commits     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	requests    *prometheus.HistogramVec

	// amounts goes to the global OpenTelemetry meter, exported only when
	// InitExport has run.
	amounts otelmetric.Int64Histogram
}

// New registers the collectors. openSessions, when non-nil, is sampled at
// scrape time for viaggi_sessions_open.
func New(openSessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		keys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypad_keys_total",
			Help:      "Keys accepted by entry sessions, by key class.",
		}, []string{"class"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Commit attempts by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the rate limiter, by route group.",
		}, []string{"group"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status class.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.keys, m.commits, m.rateLimited, m.requests,
	)
	amounts, err := otel.Meter(namespace).Int64Histogram("viaggi.commit.amount",
		otelmetric.WithDescription("Magnitude of committed amounts by transaction kind"),
		otelmetric.WithUnit("{cent}"),
		otelmetric.WithExplicitBucketBoundaries(100, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000),
	)
	if err != nil {
		otel.Handle(err)
		amounts, _ = noop.NewMeterProvider().Meter(namespace).Int64Histogram("viaggi.commit.amount")
	}
	m.amounts = amounts

	if openSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Entry sessions currently held, expired ones included until swept.",
		}, func() float64 { return float64(openSessions()) }))
	}
	return m
}

// KeyPressed implements session.KeyObserver.
func (m *Metrics) KeyPressed(class string) {
	m.keys.WithLabelValues(class).Inc()
}

// Committed implements services.CommitObserver.
func (m *Metrics) Committed(outcome string) {
	m.commits.WithLabelValues(outcome).Inc()
}

// CommittedAmount implements services.AmountObserver.
func (m *Metrics) CommittedAmount(ctx context.Context, kind string, cents int64) {
	m.amounts.Record(ctx, cents, otelmetric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RateLimited(group string) {
	m.rateLimited.WithLabelValues(group).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.requests.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
