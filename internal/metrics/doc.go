// Package metrics defines the Prometheus metrics exported by the gallery
// service: HTTP request metrics, work queue depth and worker occupancy,
// probe outcomes, durable store operations, remote fetch results, and blob
// registry handle counts.
//
// All metrics are registered with the default registry using promauto. To
// expose them, mount promhttp.Handler() on a router:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
package metrics
