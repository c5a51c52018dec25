package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics holds Prometheus metrics for the SSO authentication engine.
type AuthMetrics struct {
	// Login flow metrics
	LoginsTotal   *prometheus.CounterVec
	LoginDuration *prometheus.HistogramVec

	// Session cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Probe re-check metrics
	ProbeChecksTotal *prometheus.CounterVec
}

// Login outcome label values.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeAuthDenied         = "auth_denied"
	OutcomeProtocolError      = "protocol_error"
	OutcomeNetworkError       = "network_error"
)

// NewAuthMetrics creates and registers authentication metrics. A nil
// registerer leaves the metrics unregistered, which is useful in tests.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsv_logins_total",
				Help: "SSO login flow runs by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		LoginDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dsv_login_duration_seconds",
				Help:    "Duration of full SSO login flow runs",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"service"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsv_session_cache_hits_total",
				Help: "Session cache hits that passed the validity probe",
			},
			[]string{"service"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsv_session_cache_misses_total",
				Help: "Session cache misses, expiries and failed re-checks",
			},
			[]string{"service"},
		),
		ProbeChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsv_probe_checks_total",
				Help: "Session probe evaluations by service and result",
			},
			[]string{"service", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.LoginsTotal,
			m.LoginDuration,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.ProbeChecksTotal,
		)
	}

	return m
}

// ObserveLogin records one login flow run.
func (m *AuthMetrics) ObserveLogin(service, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(service, outcome).Inc()
	m.LoginDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// RecordCacheHit records a cache hit whose probe re-check succeeded.
func (m *AuthMetrics) RecordCacheHit(service string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(service).Inc()
}

// RecordCacheMiss records an absent, expired or invalidated cache entry.
func (m *AuthMetrics) RecordCacheMiss(service string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(service).Inc()
}

// RecordProbe records a probe evaluation.
func (m *AuthMetrics) RecordProbe(service string, ok bool) {
	if m == nil {
		return
	}
	result := "authenticated"
	if !ok {
		result = "unauthenticated"
	}
	m.ProbeChecksTotal.WithLabelValues(service, result).Inc()
}
