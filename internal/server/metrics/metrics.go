// Package metrics holds the Prometheus collectors of the sync server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	PushDeltas    *prometheus.CounterVec
	PushRequests  *prometheus.CounterVec
	PullDeltas    prometheus.Counter
	HTTPDurations *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		PushDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nibblelog_push_deltas_total",
			Help: "Pushed deltas by result (accepted, duplicate, failed).",
		}, []string{"result"}),
		PushRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nibblelog_push_requests_total",
			Help: "Push requests by outcome.",
		}, []string{"outcome"}),
		PullDeltas: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nibblelog_pull_deltas_total",
			Help: "Deltas returned by pull requests.",
		}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nibblelog_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		gatherer: reg,
	}

	reg.MustRegister(m.PushDeltas, m.PushRequests, m.PullDeltas, m.HTTPDurations)
	return m
}

// ObservePush records the per-delta outcome counts of one push.
func (m *Metrics) ObservePush(outcome string, accepted, duplicate, failed int) {
	if m == nil {
		return
	}
	m.PushRequests.WithLabelValues(outcome).Inc()
	m.PushDeltas.WithLabelValues("accepted").Add(float64(accepted))
	m.PushDeltas.WithLabelValues("duplicate").Add(float64(duplicate))
	m.PushDeltas.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObservePull(n int) {
	if m == nil {
		return
	}
	m.PullDeltas.Add(float64(n))
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDurations.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
