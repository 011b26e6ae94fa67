package remote

import (
	"context"
	"encoding/base64"
	"sync"

	"lookout-gallery/internal/hostapi"
	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
)

// Fetcher is the fast path for thumbnails: it asks the host's server-side
// generator before any in-process probing happens. Every failure mode
// reads as "absent" so the caller can fall back to the media probe.
type Fetcher struct {
	host *hostapi.Client

	mu        sync.Mutex
	checked   bool
	available bool
}

// New creates a Fetcher. Availability is re-checked whenever the host
// connection is (re)established.
func New(host *hostapi.Client) *Fetcher {
	f := &Fetcher{host: host}
	host.OnConnect(f.invalidate)
	return f
}

func (f *Fetcher) invalidate() {
	f.mu.Lock()
	f.checked = false
	f.mu.Unlock()
}

// Available reports whether the host-side generator is configured and its
// tooling is present. The answer is cached for the session; a transient
// query failure is not cached, so the next call asks again.
func (f *Fetcher) Available(ctx context.Context) bool {
	f.mu.Lock()
	if f.checked {
		available := f.available
		f.mu.Unlock()
		return available
	}
	f.mu.Unlock()

	cfg, err := f.host.GetThumbnailConfig(ctx)
	if err != nil {
		logging.Debug("Remote thumbnail config check failed: %v", err)
		return false
	}

	available := cfg.Configured && cfg.ToolAvailable

	f.mu.Lock()
	f.checked = true
	f.available = available
	f.mu.Unlock()

	if available {
		logging.Info("Remote thumbnail generator available")
	} else {
		logging.Info("Remote thumbnail generator not available (configured=%v, tool=%v)",
			cfg.Configured, cfg.ToolAvailable)
	}
	return available
}

// Fetch requests a pre-rendered thumbnail for id. It returns the decoded
// payload and its content type, or ok=false when no thumbnail could be
// obtained for any reason.
func (f *Fetcher) Fetch(ctx context.Context, id string) (payload []byte, contentType string, ok bool) {
	result, err := f.host.GetThumbnail(ctx, id)
	if err != nil {
		logging.Debug("Remote thumbnail fetch failed for %s: %v", id, err)
		metrics.RemoteFetchTotal.WithLabelValues("error").Inc()
		return nil, "", false
	}
	if !result.Success || result.PayloadBase64 == "" {
		metrics.RemoteFetchTotal.WithLabelValues("miss").Inc()
		return nil, "", false
	}

	data, err := base64.StdEncoding.DecodeString(result.PayloadBase64)
	if err != nil {
		logging.Warn("Remote thumbnail for %s had undecodable payload: %v", id, err)
		metrics.RemoteFetchTotal.WithLabelValues("error").Inc()
		return nil, "", false
	}

	metrics.RemoteFetchTotal.WithLabelValues("hit").Inc()
	return data, result.ContentType, true
}
