package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	ActivitiesUpserted   *prometheus.CounterVec
	BatchFailures        prometheus.Counter
	MessagesEnqueued     prometheus.Counter
	MessagesPromoted     prometheus.Counter
	PromotionSkips       prometheus.Counter
	MalformedEvents      *prometheus.CounterVec
	SyncRunDuration      prometheus.Histogram
	UpsertBatchDuration  prometheus.Histogram
	AggregationQueries   *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline collectors on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics output.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActivitiesUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_activities_upserted_total",
			Help: "Activities written to the ledger, labelled by conflict policy.",
		}, []string{"policy"}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpulse_upsert_batch_failures_total",
			Help: "Upsert batches that failed and aborted the remainder of the call.",
		}),
		MessagesEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpulse_pending_messages_enqueued_total",
			Help: "Chat messages accepted into the staging queue.",
		}),
		MessagesPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpulse_pending_messages_promoted_total",
			Help: "Staged messages promoted into daily update activities.",
		}),
		PromotionSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpulse_promotion_groups_skipped_total",
			Help: "Author groups skipped during promotion because the alias is unknown.",
		}),
		MalformedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_malformed_events_total",
			Help: "Platform events dropped by the normalizer, labelled by event kind.",
		}, []string{"kind"}),
		SyncRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "devpulse_sync_run_duration_seconds",
			Help:    "Wall time of a full sync run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		UpsertBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "devpulse_upsert_batch_duration_seconds",
			Help:    "Duration of individual upsert batches.",
			Buckets: prometheus.DefBuckets,
		}),
		AggregationQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_aggregation_queries_total",
			Help: "Read-side aggregation queries, labelled by query name.",
		}, []string{"query"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ActivitiesUpserted,
			m.BatchFailures,
			m.MessagesEnqueued,
			m.MessagesPromoted,
			m.PromotionSkips,
			m.MalformedEvents,
			m.SyncRunDuration,
			m.UpsertBatchDuration,
			m.AggregationQueries,
		)
	}
	return m
}

// NewTestMetrics returns unregistered collectors for use in unit tests.
func NewTestMetrics() *Metrics {
	return NewMetrics(nil)
}
