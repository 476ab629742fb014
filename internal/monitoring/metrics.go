package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the ingestion and matching paths. Registered on
// the default registry; the serve command exposes them on /metrics.
var (
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importiq_ingestion_runs_total",
		Help: "Ingestion job executions by source and outcome.",
	}, []string{"source", "outcome"})

	IngestRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importiq_ingestion_records_total",
		Help: "Ingested records by source and validity.",
	}, []string{"source", "valid"})

	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "importiq_ingestion_run_duration_seconds",
		Help:    "Wall-clock duration of ingestion jobs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"source"})

	ProximityQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importiq_proximity_queries_total",
		Help: "Proximity queries served, by urgency.",
	}, []string{"urgency"})

	EnhancementDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importiq_enhancement_drops_total",
		Help: "Candidates dropped from enhanced results after routing failures.",
	})

	DiscoveryCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importiq_discovery_candidates_total",
		Help: "Discovery candidates by disposition (proposed, duplicate, below_cutoff).",
	}, []string{"disposition"})
)
