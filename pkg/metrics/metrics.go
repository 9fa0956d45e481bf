package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DNS metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracething_dns_queries_total",
			Help: "Total number of DNS questions by type and outcome",
		},
		[]string{"qtype", "result"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracething_dns_query_duration_seconds",
			Help:    "Time taken to answer a DNS question in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"qtype"},
	)

	// Slot metrics
	SlotAllocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracething_slot_allocations_total",
			Help: "Total number of slots allocated",
		},
	)

	SlotEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracething_slot_evictions_total",
			Help: "Total number of result sets evicted by ring wraparound",
		},
	)

	SlotsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracething_slots_in_use",
			Help: "Number of occupied slots",
		},
	)

	SlotsCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracething_slots_capacity",
			Help: "Number of slots in the ring",
		},
	)

	SlotCursor = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracething_slot_cursor",
			Help: "Slot id the next allocation will take",
		},
	)

	// Source metrics
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracething_source_fetches_total",
			Help: "Total number of content fetches by source and status",
		},
		[]string{"source", "status"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracething_source_fetch_duration_seconds",
			Help:    "Content fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ChunksPerResult = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracething_chunks_per_result",
			Help:    "Number of chunks produced per fetched result",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// Storage metrics
	DocumentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracething_documents_stored",
			Help: "Number of documents served by the doc source",
		},
	)

	// Admin listener metrics
	AdminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracething_admin_requests_total",
			Help: "Total number of admin HTTP requests by path and status code",
		},
		[]string{"path", "code"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(SlotAllocations)
	prometheus.MustRegister(SlotEvictions)
	prometheus.MustRegister(SlotsInUse)
	prometheus.MustRegister(SlotsCapacity)
	prometheus.MustRegister(SlotCursor)
	prometheus.MustRegister(DocumentsStored)
	prometheus.MustRegister(FetchesTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(ChunksPerResult)
	prometheus.MustRegister(AdminRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on a histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on one series of a histogram vec
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
