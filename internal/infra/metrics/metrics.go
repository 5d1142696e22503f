package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "costing"

// Metrics holds the engine's collectors. Each instance owns its collectors so
// tests can register them on a private registry.
type Metrics struct {
	rollups          *prometheus.CounterVec
	rollupDuration   prometheus.Histogram
	unresolvedLines  prometheus.Counter
	captures         *prometheus.CounterVec
	captureDuration  prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpRequestTimer *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rollups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollups_total",
			Help:      "Cost roll-ups by outcome.",
		}, []string{"outcome"}),
		rollupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rollup_duration_seconds",
			Help:      "Time spent loading and rolling up a formula.",
			Buckets:   prometheus.DefBuckets,
		}),
		unresolvedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_lines_total",
			Help:      "Formula lines excluded from a roll-up because their unit could not be converted.",
		}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_captures_total",
			Help:      "Container weight captures by outcome.",
		}, []string{"outcome"}),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weight_capture_duration_seconds",
			Help:      "Time spent capturing a container weight, including lock wait.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.rollups, m.rollupDuration, m.unresolvedLines,
			m.captures, m.captureDuration,
			m.httpRequests, m.httpRequestTimer,
		)
	}
	return m
}

func (m *Metrics) RollupObserved(outcome string, elapsed time.Duration, unresolved int) {
	m.rollups.WithLabelValues(outcome).Inc()
	m.rollupDuration.Observe(elapsed.Seconds())
	if unresolved > 0 {
		m.unresolvedLines.Add(float64(unresolved))
	}
}

func (m *Metrics) CaptureObserved(outcome string, elapsed time.Duration) {
	m.captures.WithLabelValues(outcome).Inc()
	m.captureDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RequestObserved(method, path string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, path, statusText(status)).Inc()
	m.httpRequestTimer.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
