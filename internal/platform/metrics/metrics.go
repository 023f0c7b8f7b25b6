package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Consent ledger
	ConsentsRecorded   *prometheus.CounterVec
	ConsentsRevoked    *prometheus.CounterVec
	ConsentCheckPassed *prometheus.CounterVec
	ConsentCheckFailed *prometheus.CounterVec

	// Data export
	ExportsCompleted *prometheus.CounterVec
	ExportsFailed    prometheus.Counter
	ExportLatency    prometheus.Histogram

	// Deletion workflow
	DeletionRequested prometheus.Counter
	DeletionProcessed prometheus.Counter
	DeletionFailed    prometheus.Counter
	DeletionLatency   prometheus.Histogram

	// HTTP surface
	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ConsentsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcreams_consents_recorded_total",
			Help: "Total number of consent ledger entries written, labeled by consent type and decision",
		}, []string{"consent_type", "decision"}),
		ConsentsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcreams_consents_revoked_total",
			Help: "Total number of consent revocations, labeled by consent type",
		}, []string{"consent_type"}),
		ConsentCheckPassed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcreams_consent_checks_passed_total",
			Help: "Total number of consent checks that passed, labeled by consent type",
		}, []string{"consent_type"}),
		ConsentCheckFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcreams_consent_checks_failed_total",
			Help: "Total number of consent checks that failed, labeled by consent type",
		}, []string{"consent_type"}),
		ExportsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mrcreams_exports_completed_total",
			Help: "Total number of completed data exports, labeled by format",
		}, []string{"format"}),
		ExportsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mrcreams_exports_failed_total",
			Help: "Total number of data exports aborted by an error",
		}),
		ExportLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrcreams_export_latency_seconds",
			Help:    "Latency of export bundle assembly in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		DeletionRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mrcreams_deletion_requests_total",
			Help: "Total number of accepted data deletion requests",
		}),
		DeletionProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mrcreams_deletions_processed_total",
			Help: "Total number of completed erasures",
		}),
		DeletionFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mrcreams_deletions_failed_total",
			Help: "Total number of erasure transactions rolled back",
		}),
		DeletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mrcreams_deletion_latency_seconds",
			Help:    "Latency of the erasure transaction in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mrcreams_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncrementConsentsRecorded(consentType, decision string) {
	m.ConsentsRecorded.WithLabelValues(consentType, decision).Inc()
}

func (m *Metrics) IncrementConsentsRevoked(consentType string) {
	m.ConsentsRevoked.WithLabelValues(consentType).Inc()
}

func (m *Metrics) IncrementConsentCheckPassed(consentType string) {
	m.ConsentCheckPassed.WithLabelValues(consentType).Inc()
}

func (m *Metrics) IncrementConsentCheckFailed(consentType string) {
	m.ConsentCheckFailed.WithLabelValues(consentType).Inc()
}

func (m *Metrics) IncrementExportsCompleted(format string) {
	m.ExportsCompleted.WithLabelValues(format).Inc()
}

func (m *Metrics) IncrementExportsFailed() {
	m.ExportsFailed.Inc()
}

// ObserveExportLatency records the duration of export bundle assembly.
func (m *Metrics) ObserveExportLatency(durationSeconds float64) {
	m.ExportLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementDeletionRequested() {
	m.DeletionRequested.Inc()
}

func (m *Metrics) IncrementDeletionProcessed() {
	m.DeletionProcessed.Inc()
}

func (m *Metrics) IncrementDeletionFailed() {
	m.DeletionFailed.Inc()
}

// ObserveDeletionLatency records the duration of the erasure transaction.
func (m *Metrics) ObserveDeletionLatency(durationSeconds float64) {
	m.DeletionLatency.Observe(durationSeconds)
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
