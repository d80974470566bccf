package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveExtractionCall("gemini-2.5-flash", "ok")
	m.ObserveExtractionCall("gemini-2.5-flash", "ok")
	m.ObserveEnsemble("")
	m.ObserveRecorded("PSA", "AUTHENTIC")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExtractionCalls.WithLabelValues("gemini-2.5-flash", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnsembleResolutions.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationsRecorded.WithLabelValues("PSA", "AUTHENTIC")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtractionCall("x", "ok")
		m.IncExtractionCacheHit()
		m.IncStructuredCodeHit()
		m.ObserveEnsemble("Male")
		m.ObserveVerifierCall("authentic")
		m.IncVerifierCacheHit()
		m.ObserveSessionRefresh("ok")
		m.ObserveRecorded("PSA", "FAKE")
	})
}
