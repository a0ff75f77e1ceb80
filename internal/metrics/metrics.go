package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LastProcessedBlock tracks the durable checkpoint.
	LastProcessedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raffle_indexer_last_processed_block",
			Help: "The last block number whose batch has been committed",
		},
	)

	// BatchesProcessed counts committed indexing batches.
	BatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_indexer_batches_processed_total",
			Help: "Total number of committed indexing batches",
		},
	)

	// BatchDuration observes end-to-end tick latency.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raffle_indexer_batch_duration_seconds",
			Help:    "Time taken to fetch, project, and commit one batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EventsProjected counts decoded events applied per kind.
	EventsProjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_indexer_events_projected_total",
			Help: "Total number of events applied to the projection",
		},
		[]string{"kind"},
	)

	// DuplicateEvents counts events dropped by (tx_hash, log_index) uniqueness.
	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_indexer_duplicate_events_total",
			Help: "Total number of events skipped as duplicates",
		},
	)

	// StaleTransitions counts out-of-order status updates that became no-ops.
	StaleTransitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_indexer_stale_transitions_total",
			Help: "Total number of status updates skipped as out-of-order",
		},
	)

	// UnknownTopics counts logs from subscribed contracts with unknown topic0.
	UnknownTopics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_indexer_unknown_topics_total",
			Help: "Total number of logs with an unrecognized event signature",
		},
	)

	// UnknownRaffles counts raffle events skipped because the raffle row was
	// never created (checkpoint past the creation block).
	UnknownRaffles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_indexer_unknown_raffles_total",
			Help: "Total number of events skipped for raffles that were never discovered",
		},
	)
)
