package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuthMetrics(reg)
	require.NotNil(t, m)

	m.ObserveLogin("daisy-staff", OutcomeSuccess, 2*time.Second)
	m.ObserveLogin("daisy-staff", OutcomeInvalidCredentials, time.Second)
	m.RecordCacheHit("daisy-staff")
	m.RecordCacheMiss("handledning")
	m.RecordProbe("daisy-staff", true)
	m.RecordProbe("daisy-staff", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginsTotal.WithLabelValues("daisy-staff", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginsTotal.WithLabelValues("daisy-staff", OutcomeInvalidCredentials)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("daisy-staff")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("handledning")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProbeChecksTotal.WithLabelValues("daisy-staff", "authenticated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProbeChecksTotal.WithLabelValues("daisy-staff", "unauthenticated")))
}

func TestAuthMetrics_NilSafe(t *testing.T) {
	var m *AuthMetrics

	// A component without metrics must be able to call these.
	m.ObserveLogin("daisy-staff", OutcomeSuccess, time.Second)
	m.RecordCacheHit("daisy-staff")
	m.RecordCacheMiss("daisy-staff")
	m.RecordProbe("daisy-staff", true)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "info", ParseLevel("bogus").String())
}
