package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UploadsAccepted prometheus.Counter
	BatchItems      *prometheus.CounterVec
	UnitsProcessed  *prometheus.CounterVec
	ImportJobs      *prometheus.CounterVec
	ImportRecords   *prometheus.CounterVec
}

// New creates all metrics and registers them on reg. Tests pass a fresh
// registry so packages do not collide on the global one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UploadsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "grc_evidence_uploads_accepted_total",
			Help: "Evidence submissions durably queued for processing.",
		}),
		BatchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_evidence_batch_items_total",
			Help: "Batch upload items by outcome.",
		}, []string{"result"}),
		UnitsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_evidence_units_processed_total",
			Help: "Evidence units processed by the async worker, by outcome.",
		}, []string{"result"}),
		ImportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_import_jobs_total",
			Help: "Bulk import jobs by terminal status.",
		}, []string{"status"}),
		ImportRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_import_records_total",
			Help: "Imported third-party records by outcome.",
		}, []string{"result"}),
	}
}
