package metrics

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"done", "failed"} {
		QueueItemsProcessed.WithLabelValues(outcome)
	}

	for _, kind := range []string{"image", "video"} {
		ProbeDuration.WithLabelValues(kind)
		for _, result := range []string{"ok", "bad", "timeout", "error"} {
			ProbeTotal.WithLabelValues(kind, result)
		}
	}

	for _, op := range []string{"get", "put", "delete", "clear", "purge_expired"} {
		StoreOperationsTotal.WithLabelValues(op, "success")
		StoreOperationsTotal.WithLabelValues(op, "error")
	}

	for _, status := range []string{"hit", "miss", "error"} {
		RemoteFetchTotal.WithLabelValues(status)
	}
}
