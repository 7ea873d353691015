// Package telemetry exposes Prometheus metrics for the supervisor and
// its workers.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mosaicworks/querydesk/internal/supervisor"
)

type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal   *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
	QueryAttempts  prometheus.Histogram
	WorkerDuration *prometheus.HistogramVec
	WorkerErrors   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "querydesk",
			Name:      "queries_total",
			Help:      "Queries processed, by outcome.",
		}, []string{"success"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "querydesk",
			Name:      "query_duration_seconds",
			Help:      "End to end query latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueryAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "querydesk",
			Name:      "query_attempts",
			Help:      "Attempts consumed per query.",
			Buckets:   []float64{1, 2, 3},
		}),
		WorkerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "querydesk",
			Name:      "worker_duration_seconds",
			Help:      "Worker invocation latency, by category.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		WorkerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "querydesk",
			Name:      "worker_errors_total",
			Help:      "Failed worker invocations, by category.",
		}, []string{"category"}),
	}
	m.registry.MustRegister(
		m.QueriesTotal, m.QueryDuration, m.QueryAttempts,
		m.WorkerDuration, m.WorkerErrors,
	)
	return m
}

// Handler serves the metrics endpoint from this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records the outcome of one processed query.
func (m *Metrics) ObserveQuery(result supervisor.FinalResult) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(strconv.FormatBool(result.Success)).Inc()
	m.QueryDuration.Observe(result.Elapsed.Seconds())
	m.QueryAttempts.Observe(float64(result.Attempts))
}

type instrumentedInvoker struct {
	inner   supervisor.Invoker
	metrics *Metrics
}

// InstrumentInvoker wraps an invoker with latency and error metrics.
func (m *Metrics) InstrumentInvoker(inner supervisor.Invoker) supervisor.Invoker {
	if m == nil {
		return inner
	}
	return &instrumentedInvoker{inner: inner, metrics: m}
}

func (i *instrumentedInvoker) Invoke(ctx context.Context, task supervisor.WorkerTask) (supervisor.WorkerAnswer, error) {
	start := time.Now()
	ans, err := i.inner.Invoke(ctx, task)
	category := string(task.Category)
	i.metrics.WorkerDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.WorkerErrors.WithLabelValues(category).Inc()
	}
	return ans, err
}
