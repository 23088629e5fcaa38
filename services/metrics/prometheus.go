// Package metricsvc exposes Prometheus collectors for the API.
package metricsvc

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	apiResponseTime  *prometheus.HistogramVec
	apiErrorCounter  *prometheus.CounterVec
	upstreamTime     *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	tokensIssued     *prometheus.CounterVec
	tokenTTL         prometheus.Histogram
	socialPosts      *prometheus.CounterVec
	rateLimitedCalls *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry, so tests can build many.
func NewMetrics(ns, system string) *Metrics {
	ns, system = fmtFixer(ns), fmtFixer(system)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		apiResponseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: system,
			Name: "api_response_time",
			Help: "API response time in seconds by route.",
		}, []string{"method", "route"}),
		apiErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: system,
			Name: "api_error",
			Help: "API responses with status >= 400.",
		}, []string{"method", "route", "status"}),
		upstreamTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: system,
			Name: "upstream_response_time",
			Help: "Time spent waiting on forwarded services in seconds.",
		}, []string{"upstream"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: system,
			Name: "upstream_error",
			Help: "Forwarded calls that failed before an answer came back.",
		}, []string{"upstream"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: system,
			Name: "voice_tokens_issued",
			Help: "Real-time access tokens signed.",
		}, []string{"agent"}),
		tokenTTL: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: system,
			Name:    "voice_token_ttl_seconds",
			Help:    "Granted token lifetimes.",
			Buckets: []float64{60, 300, 900, 1800, 3600},
		}),
		socialPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: system,
			Name: "social_posts",
			Help: "Sparks and echoes created.",
		}, []string{"kind"}),
		rateLimitedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: system,
			Name: "rate_limited",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"route"}),
	}
	reg.MustRegister(
		m.apiResponseTime, m.apiErrorCounter,
		m.upstreamTime, m.upstreamErrors,
		m.tokensIssued, m.tokenTTL,
		m.socialPosts, m.rateLimitedCalls,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, elapsed time.Duration) {
	m.apiResponseTime.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= http.StatusBadRequest {
		m.apiErrorCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}

func (m *Metrics) UpstreamTimer(upstream string) *prometheus.Timer {
	return prometheus.NewTimer(m.upstreamTime.WithLabelValues(upstream))
}

func (m *Metrics) UpstreamErrorInc(upstream string) {
	m.upstreamErrors.WithLabelValues(upstream).Inc()
}

func (m *Metrics) TokenIssued(agent string, ttl time.Duration) {
	m.tokensIssued.WithLabelValues(agent).Inc()
	m.tokenTTL.Observe(ttl.Seconds())
}

func (m *Metrics) SocialPostInc(kind string) {
	m.socialPosts.WithLabelValues(kind).Inc()
}

func (m *Metrics) RateLimitedInc(route string) {
	m.rateLimitedCalls.WithLabelValues(route).Inc()
}

func fmtFixer(s string) string {
	return strings.ToLower(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(s))
}
