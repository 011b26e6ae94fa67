package scheduler

import (
	"context"

	"lookout-gallery/internal/gallery"
	"lookout-gallery/internal/logging"
)

// Reconcile revalidates thumbnail handles after the consumer regains
// visibility: the host may have evicted resources while the view was
// hidden. Invalid handles are re-derived from the durable store or
// re-fetched remotely; items with no recoverable source are reset to
// unchecked so the next recomputation reprocesses them. Items already in
// flight are left alone.
func (s *Scheduler) Reconcile(ctx context.Context) {
	revalidated, recovered, reset := 0, 0, 0

	for _, item := range s.state.Items() {
		if item.Kind.IsContainer() || !item.Checked || item.Thumbnail == nil {
			continue
		}

		id := item.ContentID
		s.mu.Lock()
		_, busy := s.inFlight[id]
		s.mu.Unlock()
		if busy {
			continue
		}

		if s.blobs.Validate(ctx, item.Thumbnail) {
			revalidated++
			continue
		}

		// Handle went stale; try the store first, then the remote
		// generator.
		if rec, err := s.store.Get(ctx, id); err == nil && rec != nil && len(rec.Payload) > 0 && !rec.IsBroken {
			s.adoptThumbnail(id, rec.Payload, "image/jpeg")
			recovered++
			continue
		}

		if s.remote != nil && s.remote.Available(ctx) {
			if payload, contentType, ok := s.remote.Fetch(ctx, id); ok {
				s.adoptThumbnail(id, payload, contentType)
				if err := s.store.Put(ctx, id, payload, false); err != nil {
					logging.Debug("Failed to persist recovered thumbnail for %s: %v", id, err)
				}
				recovered++
				continue
			}
		}

		s.blobs.Release(id)
		s.state.Update(id, func(m *gallery.MediaItem) {
			m.Checked = false
			m.Thumbnail = nil
		})
		reset++
	}

	if recovered > 0 || reset > 0 {
		logging.Info("Reconciled thumbnails: %d valid, %d recovered, %d reset", revalidated, recovered, reset)
	}
	if reset > 0 {
		s.Recompute()
	}
}
