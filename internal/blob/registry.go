package blob

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
)

// DefaultValidateTimeout bounds how long Validate waits for a handle to
// prove it is still displayable.
const DefaultValidateTimeout = 2 * time.Second

// Handle is an ownership-tracked reference to an in-memory displayable
// image. It is addressable over HTTP at URL() until released.
type Handle struct {
	token       string
	contentType string
	payload     []byte

	mu       sync.Mutex
	released bool
}

// URL returns the path at which the registry serves this handle.
func (h *Handle) URL() string {
	return "/blob/" + h.token
}

// ContentType returns the MIME type of the handle's payload.
func (h *Handle) ContentType() string {
	return h.contentType
}

// Released reports whether this handle has been revoked.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *Handle) markReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return false
	}
	h.released = true
	return true
}

// Registry tracks blob handles with single-owner revocation: at most one
// live handle per content identifier, and tracking a new handle for an
// identifier releases its predecessor first.
type Registry struct {
	mu      sync.Mutex
	byID    map[string]*Handle
	byToken map[string]*Handle
}

// NewRegistry creates an empty blob registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]*Handle),
		byToken: make(map[string]*Handle),
	}
}

// NewHandle allocates a handle for payload. The handle is not live until
// it is passed to Track.
func (r *Registry) NewHandle(payload []byte, contentType string) *Handle {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Handle{
		token:       uuid.NewString(),
		contentType: contentType,
		payload:     payload,
	}
}

// Track registers handle as the live handle for id, releasing any prior
// handle for the same id first. Passing the handle already tracked for id
// is a no-op.
func (r *Registry) Track(id string, handle *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.byID[id]
	if prev == handle {
		return
	}
	if prev != nil {
		r.releaseLocked(prev)
	}

	r.byID[id] = handle
	r.byToken[handle.token] = handle
	metrics.BlobHandlesLive.Set(float64(len(r.byToken)))
}

// Release revokes the live handle for id, if any.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h := r.byID[id]; h != nil {
		r.releaseLocked(h)
		delete(r.byID, id)
		metrics.BlobHandlesLive.Set(float64(len(r.byToken)))
	}
}

// ReleaseAll revokes every tracked handle. Used on teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, h := range r.byID {
		r.releaseLocked(h)
		delete(r.byID, id)
	}
	metrics.BlobHandlesLive.Set(0)
	logging.Debug("Blob registry drained")
}

func (r *Registry) releaseLocked(h *Handle) {
	if h.markReleased() {
		metrics.BlobHandlesReleased.Inc()
	}
	delete(r.byToken, h.token)
}

// Live returns the number of live handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

// Lookup returns the live handle for id, or nil.
func (r *Registry) Lookup(id string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// Validate reports whether handle is still live and its payload still
// decodes as an image. A handle that neither proves itself nor errors
// before the timeout is treated as invalid.
func (r *Registry) Validate(ctx context.Context, handle *Handle) bool {
	if handle == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultValidateTimeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		r.mu.Lock()
		_, live := r.byToken[handle.token]
		r.mu.Unlock()
		if !live {
			result <- false
			return
		}
		_, _, err := image.DecodeConfig(bytes.NewReader(handle.payload))
		result <- err == nil
	}()

	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}

// ServeHTTP serves a live handle's payload. Mount under /blob/{token};
// released handles 404.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	token := mux.Vars(req)["token"]

	r.mu.Lock()
	h := r.byToken[token]
	r.mu.Unlock()

	if h == nil {
		http.NotFound(w, req)
		return
	}

	w.Header().Set("Content-Type", h.contentType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(h.payload); err != nil {
		logging.Debug("failed to write blob %s: %v", token, err)
	}
}
