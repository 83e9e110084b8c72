// Package metrics provides Prometheus metrics for vhist.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesApplied tracks batches run through the ingest protocol by outcome
	BatchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vhist",
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Total number of batches applied by status",
		},
		[]string{"status"},
	)

	// BatchDuration tracks the time spent applying one batch
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vhist",
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch application in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// RecordsUpserted tracks upserted records by kind (commune, voie)
	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vhist",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of records upserted by kind",
		},
		[]string{"kind"},
	)

	// LinksApplied tracks predecessor links by outcome (applied, rejected)
	LinksApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vhist",
			Subsystem: "ingest",
			Name:      "links_total",
			Help:      "Total number of predecessor links by outcome",
		},
		[]string{"outcome"},
	)

	// CancellationsAcknowledged tracks cancelled communes settled by cleanup
	CancellationsAcknowledged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vhist",
			Subsystem: "history",
			Name:      "cancellations_acknowledged_total",
			Help:      "Total number of commune cancellations acknowledged by cleanup",
		},
	)

	// IndexedEntities tracks the size of the indices by kind
	IndexedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vhist",
			Subsystem: "history",
			Name:      "indexed_entities",
			Help:      "Number of indexed entities by kind",
		},
		[]string{"kind"},
	)
)

// Label values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"

	KindCommune = "commune"
	KindVoie    = "voie"

	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)
