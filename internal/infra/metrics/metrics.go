// Package metrics owns the gateway's Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const namespace = "dba_gateway"

// Metrics records proxy, limiter and authentication outcomes.
type Metrics struct {
	registry *prometheus.Registry

	proxiedRequests   *prometheus.CounterVec
	proxyDuration     *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	authFailures      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		proxiedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxied_requests_total",
			Help:      "Requests forwarded to backend services, by service and response status.",
		}, []string{"service", "status"}),
		proxyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_duration_seconds",
			Help:      "Latency of proxied requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limiter tier.",
		}, []string{"tier"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected during token verification, by error code.",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.proxiedRequests,
		m.proxyDuration,
		m.rateLimitRejected,
		m.authFailures,
	)

	return m
}

func (m *Metrics) ObserveProxied(service string, status int, elapsed time.Duration) {
	m.proxiedRequests.WithLabelValues(service, strconv.Itoa(status)).Inc()
	m.proxyDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(tier string) {
	m.rateLimitRejected.WithLabelValues(tier).Inc()
}

func (m *Metrics) AuthFailed(code string) {
	m.authFailures.WithLabelValues(code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Module provides the metrics registry
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(New),
)
