// Package metrics provides Prometheus metrics for the bramble service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessedTotal tracks dedup passes by outcome (matched, unmatched, skipped, failed)
	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "dedup",
			Name:      "records_processed_total",
			Help:      "Total number of record dedup passes by outcome",
		},
		[]string{"outcome"},
	)

	// RecordPassDuration tracks the duration of a single record dedup pass
	RecordPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "dedup",
			Name:      "record_pass_duration_seconds",
			Help:      "Duration of a single record dedup pass in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 0.7, 1, 2.5, 5},
		},
	)

	// CandidatesExaminedTotal tracks candidates handed to the match cascade per key type
	CandidatesExaminedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "dedup",
			Name:      "candidates_examined_total",
			Help:      "Total number of candidates examined by key type",
		},
		[]string{"key_type"},
	)

	// HotKeysTotal tracks candidate scans aborted because a key had too many candidates
	HotKeysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "dedup",
			Name:      "hot_keys_total",
			Help:      "Total number of candidate scans aborted on a hot key",
		},
		[]string{"key_type"},
	)

	// GroupChangesTotal tracks dedup group membership changes
	GroupChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "groups",
			Name:      "changes_total",
			Help:      "Total number of dedup group changes by action",
		},
		[]string{"action"},
	)

	// IntegrityRepairsTotal tracks repairs made by the group consistency check
	IntegrityRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "groups",
			Name:      "integrity_repairs_total",
			Help:      "Total number of dedup group repairs by reason",
		},
		[]string{"reason"},
	)

	// ComponentPartsLinkedTotal tracks component part pairs linked through their hosts
	ComponentPartsLinkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "dedup",
			Name:      "component_parts_linked_total",
			Help:      "Total number of component part pairs linked through their hosts",
		},
	)

	// WorkersBusy tracks dedup workers currently processing a record
	WorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bramble",
			Subsystem: "processor",
			Name:      "workers_busy",
			Help:      "Number of dedup workers currently processing a record",
		},
	)

	// KafkaMessagesTotal tracks consumed messages by topic and status
	KafkaMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Total number of consumed Kafka messages by topic and status",
		},
		[]string{"topic", "status"},
	)

	// EventsPublishedTotal tracks dedup group events published
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of dedup group events published by type and status",
		},
		[]string{"event_type", "status"},
	)
)

// Outcome labels for RecordsProcessedTotal
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)
