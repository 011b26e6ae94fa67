package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Work queue metrics
var (
	QueuePendingItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_gallery_queue_pending_items",
			Help: "Number of items waiting for a worker slot",
		},
	)

	QueueActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_gallery_queue_active_workers",
			Help: "Number of worker slots currently processing an item",
		},
	)

	QueueItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_gallery_queue_items_processed_total",
			Help: "Total number of items that reached a terminal state",
		},
		[]string{"outcome"}, // "done", "failed"
	)

	QueueRecomputeTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_queue_recompute_total",
			Help: "Total number of pending-set recomputations",
		},
	)
)

// Probe metrics
var (
	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_gallery_probe_total",
			Help: "Total number of media probes",
		},
		[]string{"kind", "result"}, // kind: "image"/"video", result: "ok"/"bad"/"timeout"/"error"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_gallery_probe_duration_seconds",
			Help:    "Media probe duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)
)

// Durable store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_gallery_store_operations_total",
			Help: "Total number of thumbnail store operations",
		},
		[]string{"operation", "status"},
	)

	StoreHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_store_hits_total",
			Help: "Total number of thumbnail store cache hits",
		},
	)

	StoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_store_misses_total",
			Help: "Total number of thumbnail store cache misses",
		},
	)

	StoreExpiredRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_store_expired_records_total",
			Help: "Total number of records discarded because they exceeded the retention window",
		},
	)

	StoreReopens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_store_reopens_total",
			Help: "Total number of times the store connection was transparently reopened",
		},
	)
)

// Remote thumbnail metrics
var (
	RemoteFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_gallery_remote_fetch_total",
			Help: "Total number of remote thumbnail fetch attempts",
		},
		[]string{"status"}, // "hit", "miss", "error"
	)
)

// Blob registry metrics
var (
	BlobHandlesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_gallery_blob_handles_live",
			Help: "Number of live blob handles in the registry",
		},
	)

	BlobHandlesReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_gallery_blob_handles_released_total",
			Help: "Total number of blob handles released",
		},
	)
)
