// Package metrics implements the observability hooks with Prometheus.
//
// A [Metrics] value satisfies observability.SourceHooks, QueryHooks and
// HTTPHooks at once. Register it at startup and serve [Handler] on /metrics:
//
//	m := metrics.New(prometheus.NewRegistry())
//	m.Install()
//	r.Handle("/metrics", m.Handler())
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/observability"
)

const namespace = "docwalk"

// Metrics holds the collectors. All fields are registered by New.
type Metrics struct {
	SourceQueries  *prometheus.CounterVec
	SourceElements *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec
	SourceErrors   *prometheus.CounterVec

	QueriesInFlight prometheus.Gauge
	Queries         *prometheus.CounterVec
	QueryResults    *prometheus.HistogramVec
	QueryDuration   *prometheus.HistogramVec

	HTTPInFlight        prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var (
	_ observability.SourceHooks = (*Metrics)(nil)
	_ observability.QueryHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg. If reg is also a
// Gatherer (a *prometheus.Registry is), Handler serves it; otherwise Handler
// serves the default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		SourceQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_queries_total",
			Help:      "Data source queries answered, by backend and operation.",
		}, []string{"backend", "op"}),
		SourceElements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_elements_total",
			Help:      "Elements yielded by data source queries.",
		}, []string{"backend", "op"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_query_duration_seconds",
			Help:      "Duration of data source queries in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"backend", "op"}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed data source queries, by error code.",
		}, []string{"backend", "op", "code"}),

		QueriesInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queries_in_flight",
			Help:      "Queries currently running.",
		}),
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Completed queries, by relation and outcome.",
		}, []string{"relation", "status"}),
		QueryResults: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Number of results per successful query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"relation"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of queries in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"relation"}),

		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
	}

	m.gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Install registers m as the source, query and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetSourceHooks(m)
	observability.SetQueryHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) OnSourceQuery(_ context.Context, backend, op string, count int, d time.Duration) {
	m.SourceQueries.WithLabelValues(backend, op).Inc()
	m.SourceElements.WithLabelValues(backend, op).Add(float64(count))
	m.SourceDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func (m *Metrics) OnSourceError(_ context.Context, backend, op string, err error) {
	m.SourceErrors.WithLabelValues(backend, op, code(err)).Inc()
}

func (m *Metrics) OnQueryStart(context.Context, string, string) {
	m.QueriesInFlight.Inc()
}

func (m *Metrics) OnQueryComplete(_ context.Context, relation string, count int, d time.Duration, err error) {
	m.QueriesInFlight.Dec()
	m.QueryDuration.WithLabelValues(relation).Observe(d.Seconds())
	if err != nil {
		m.Queries.WithLabelValues(relation, code(err)).Inc()
		return
	}
	m.Queries.WithLabelValues(relation, "ok").Inc()
	m.QueryResults.WithLabelValues(relation).Observe(float64(count))
}

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.HTTPInFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.HTTPInFlight.Dec()
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// code turns an error into a bounded label value.
func code(err error) string {
	if c := errs.GetCode(err); c != "" {
		return string(c)
	}
	return "unknown"
}
