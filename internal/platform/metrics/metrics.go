// Package metrics exposes Prometheus instruments for the verification pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ExtractionCalls       *prometheus.CounterVec
	ExtractionDuration    prometheus.Histogram
	ExtractionCacheHits   prometheus.Counter
	StructuredCodeHits    prometheus.Counter
	EnsembleResolutions   *prometheus.CounterVec
	VerifierCalls         *prometheus.CounterVec
	VerifierCacheHits     prometheus.Counter
	SessionRefreshes      *prometheus.CounterVec
	VerificationsRecorded *prometheus.CounterVec
}

// New registers every instrument with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExtractionCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "egov_extraction_calls_total",
			Help: "Provider extraction calls by model and outcome",
		}, []string{"model", "outcome"}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "egov_extraction_duration_seconds",
			Help:    "Duration of a full document extraction, cache misses only",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		ExtractionCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "egov_extraction_cache_hits_total",
			Help: "Extractions served from the content-hash cache",
		}),
		StructuredCodeHits: f.NewCounter(prometheus.CounterOpts{
			Name: "egov_structured_code_short_circuits_total",
			Help: "Extractions answered from a trusted QR payload",
		}),
		EnsembleResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "egov_sex_ensemble_resolutions_total",
			Help: "Sex disambiguation runs by result",
		}, []string{"result"}),
		VerifierCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "egov_remote_verifier_calls_total",
			Help: "Remote verifier calls by outcome",
		}, []string{"outcome"}),
		VerifierCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "egov_remote_verifier_cache_hits_total",
			Help: "Remote verdicts served from cache",
		}),
		SessionRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "egov_verifier_session_refreshes_total",
			Help: "Cookie issuer calls by outcome",
		}, []string{"outcome"}),
		VerificationsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "egov_verifications_recorded_total",
			Help: "Persisted verification records by type and status",
		}, []string{"type", "status"}),
	}
}

func (m *Metrics) ObserveExtractionCall(model, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionCalls.WithLabelValues(model, outcome).Inc()
}

// ObserveExtraction records the duration of an extraction started at start.
func (m *Metrics) ObserveExtraction(start time.Time) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncExtractionCacheHit() {
	if m == nil {
		return
	}
	m.ExtractionCacheHits.Inc()
}

func (m *Metrics) IncStructuredCodeHit() {
	if m == nil {
		return
	}
	m.StructuredCodeHits.Inc()
}

// ObserveEnsemble records a disambiguation result; "" is reported as "unknown".
func (m *Metrics) ObserveEnsemble(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.EnsembleResolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveVerifierCall(outcome string) {
	if m == nil {
		return
	}
	m.VerifierCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncVerifierCacheHit() {
	if m == nil {
		return
	}
	m.VerifierCacheHits.Inc()
}

func (m *Metrics) ObserveSessionRefresh(outcome string) {
	if m == nil {
		return
	}
	m.SessionRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecorded(verificationType, status string) {
	if m == nil {
		return
	}
	m.VerificationsRecorded.WithLabelValues(verificationType, status).Inc()
}
