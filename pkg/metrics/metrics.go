package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storaged_requests_total",
			Help: "Total number of storage requests by operation and result code",
		},
		[]string{"op", "code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storaged_request_duration_seconds",
			Help:    "Request duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	PartitionsServed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storaged_partitions_served",
			Help: "Number of partitions this node currently leads",
		},
	)

	IllegalDataTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storaged_illegal_data_total",
			Help: "Total number of rows skipped for decode or validation failure",
		},
	)

	MemoryExceededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storaged_memory_exceeded_total",
			Help: "Total number of requests that tripped their memory budget",
		},
	)

	DeadlineExceededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storaged_deadline_exceeded_total",
			Help: "Total number of requests that exceeded their deadline",
		},
	)

	// Raft metrics, fed by the replicated kvstore
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storaged_raft_is_leader",
			Help: "Whether this node holds Raft leadership for at least one partition (1 = yes, 0 = no)",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storaged_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Index rebuild metrics
	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storaged_index_rebuild_duration_seconds",
			Help:    "Time taken for a full index rebuild in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	IndexRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storaged_index_rebuilds_total",
			Help: "Total number of index rebuilds completed",
		},
	)

	IndexesByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storaged_indexes_by_state",
			Help: "Number of indexes currently in each state",
		},
		[]string{"state"},
	)

	// Checkpoint metrics
	CheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storaged_checkpoints_total",
			Help: "Total number of checkpoint create/drop operations by kind and result",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PartitionsServed)
	prometheus.MustRegister(IllegalDataTotal)
	prometheus.MustRegister(MemoryExceededTotal)
	prometheus.MustRegister(DeadlineExceededTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(IndexRebuildDuration)
	prometheus.MustRegister(IndexRebuildsTotal)
	prometheus.MustRegister(IndexesByState)
	prometheus.MustRegister(CheckpointsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
