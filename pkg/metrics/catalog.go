package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics records media save outcomes. A compensation failure
// means a blob was uploaded, the transaction rolled back, and the
// cleanup delete also failed, leaving an orphaned blob that operators
// must remove by hand.
type CatalogMetrics struct {
	uploads             *prometheus.CounterVec
	compensationFailure *prometheus.CounterVec
	saveDuration        *prometheus.HistogramVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uploads_total",
		Help: "Blob uploads attempted, by entity and outcome.",
	}, []string{"entity", "outcome"})
	compensationFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_compensation_failures_total",
		Help: "Blob cleanup deletes that failed after a rolled back save.",
	}, []string{"entity"})
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_save_duration_seconds",
		Help:    "Duration of coordinated media saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})
	reg.MustRegister(uploads, compensationFailure, saveDuration)
	return &CatalogMetrics{
		uploads:             uploads,
		compensationFailure: compensationFailure,
		saveDuration:        saveDuration,
	}
}

// IncUpload increments the upload counter for the entity and outcome.
func (c *CatalogMetrics) IncUpload(entity, outcome string) {
	if c == nil || c.uploads == nil {
		return
	}
	c.uploads.WithLabelValues(normalizeLabel(entity), normalizeLabel(outcome)).Inc()
}

// IncCompensationFailure increments the orphaned blob counter.
func (c *CatalogMetrics) IncCompensationFailure(entity string) {
	if c == nil || c.compensationFailure == nil {
		return
	}
	c.compensationFailure.WithLabelValues(normalizeLabel(entity)).Inc()
}

// ObserveSaveDuration records how long a coordinated save took.
func (c *CatalogMetrics) ObserveSaveDuration(entity string, duration time.Duration) {
	if c == nil || c.saveDuration == nil {
		return
	}
	c.saveDuration.WithLabelValues(normalizeLabel(entity)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
