package scheduler

import (
	"context"
	"sync"
	"time"

	"lookout-gallery/internal/blob"
	"lookout-gallery/internal/gallery"
	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
	"lookout-gallery/internal/probe"
	"lookout-gallery/internal/store"
)

const (
	// defaultDebounce coalesces rapid successive recomputation triggers.
	defaultDebounce = 100 * time.Millisecond

	// defaultTickDelay is the short deferred tick that re-invokes the
	// dispatch loop after a worker frees its slot.
	defaultTickDelay = 10 * time.Millisecond
)

// Outcome is the terminal state of one processed item.
type Outcome string

// Terminal outcomes. Both mark the item checked; they differ only in the
// broken classification.
const (
	OutcomeDone   Outcome = "done"
	OutcomeFailed Outcome = "failed"
)

// Store is the slice of the durable cache the worker needs.
type Store interface {
	Get(ctx context.Context, id string) (*store.Record, error)
	Put(ctx context.Context, id string, payload []byte, isBroken bool) error
}

// RemoteFetcher is the optional server-side thumbnail fast path.
type RemoteFetcher interface {
	Available(ctx context.Context) bool
	Fetch(ctx context.Context, id string) (payload []byte, contentType string, ok bool)
}

// Resolver turns a content identifier into a playable URL.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Prober validates media and produces thumbnails.
type Prober interface {
	ProbeImage(ctx context.Context, url string, threshold float64) probe.Result
	ProbeVideo(ctx context.Context, url string, threshold float64) probe.Result
}

// Config controls the scheduler's concurrency and classification policy.
type Config struct {
	// Ceiling is the maximum number of concurrently processing items.
	Ceiling int

	// DarknessThreshold below which a sampled frame classifies as broken.
	// Zero disables darkness classification.
	DarknessThreshold float64

	// HideBroken persists broken classifications as terminal failures so
	// the projection can filter them.
	HideBroken bool

	// Debounce and TickDelay default when zero.
	Debounce  time.Duration
	TickDelay time.Duration
}

// Scheduler computes the needs-processing set from the visible item list
// and runs a bounded pool of logical workers over it. An item id is in at
// most one of pending or inFlight at any time, and the number of active
// workers never exceeds the ceiling.
type Scheduler struct {
	state  *gallery.State
	store  Store
	remote RemoteFetcher
	rslv   Resolver
	prober Prober
	blobs  *blob.Registry
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    []string
	pendingSet map[string]struct{}
	inFlight   map[string]struct{}
	active     int
	debounce   *time.Timer
	closed     bool

	wg sync.WaitGroup

	// onTerminal is a test hook invoked after each terminal
	// classification.
	onTerminal func(id string, outcome Outcome)
}

// New creates a Scheduler. Call Recompute whenever the visible item list
// changes; call Close on teardown.
func New(ctx context.Context, state *gallery.State, st Store, rf RemoteFetcher, rslv Resolver, pr Prober, blobs *blob.Registry, cfg Config) *Scheduler {
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = 1
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.TickDelay <= 0 {
		cfg.TickDelay = defaultTickDelay
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		state:      state,
		store:      st,
		remote:     rf,
		rslv:       rslv,
		prober:     pr,
		blobs:      blobs,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		pendingSet: make(map[string]struct{}),
		inFlight:   make(map[string]struct{}),
	}
}

// Recompute schedules a recomputation of the pending set, coalescing
// triggers that arrive within the debounce window. Each new trigger
// supersedes the previous timer.
func (s *Scheduler) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.Debounce, s.recomputeNow)
}

// recomputeNow rebuilds the pending queue from the current visible order:
// containers, checked items and in-flight items are excluded, and the
// queue is deduplicated by construction.
func (s *Scheduler) recomputeNow() {
	items := s.state.Items()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.pending = s.pending[:0]
	s.pendingSet = make(map[string]struct{})
	for _, item := range items {
		if item.Kind.IsContainer() || item.Checked {
			continue
		}
		if _, busy := s.inFlight[item.ContentID]; busy {
			continue
		}
		if _, queued := s.pendingSet[item.ContentID]; queued {
			continue
		}
		s.pending = append(s.pending, item.ContentID)
		s.pendingSet[item.ContentID] = struct{}{}
	}

	metrics.QueueRecomputeTotal.Inc()
	metrics.QueuePendingItems.Set(float64(len(s.pending)))
	logging.Debug("Recomputed pending set: %d items, %d in flight", len(s.pending), len(s.inFlight))
	s.mu.Unlock()

	s.dispatch()
}

// dispatch hands pending items to workers while slots are free. Pop
// re-checks in-flight ownership so an id is never processed twice
// concurrently.
func (s *Scheduler) dispatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for s.active < s.cfg.Ceiling && len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]
		delete(s.pendingSet, id)

		if _, busy := s.inFlight[id]; busy {
			continue
		}
		item := s.state.Get(id)
		if item == nil || item.Checked {
			continue
		}

		s.inFlight[id] = struct{}{}
		s.active++
		metrics.QueuePendingItems.Set(float64(len(s.pending)))
		metrics.QueueActiveWorkers.Set(float64(s.active))

		s.wg.Add(1)
		go s.runWorker(id)
	}
}

// runWorker executes the resolution pipeline for one item, then frees its
// slot. A panic anywhere in the pipeline marks the item checked without a
// thumbnail; a single item's failure never stalls the queue.
func (s *Scheduler) runWorker(id string) {
	defer s.wg.Done()

	terminal := false
	outcome := OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Worker panic for %s: %v", id, r)
			s.state.Update(id, func(m *gallery.MediaItem) { m.Checked = true })
			terminal = true
			outcome = OutcomeFailed
		}
		s.finish(id, terminal, outcome)
	}()

	terminal, outcome = s.processItem(s.ctx, id)
}

// finish releases the worker slot, re-invokes the dispatch loop on a
// short deferred tick, and triggers a recomputation after terminal
// classifications so follow-on items are not starved.
func (s *Scheduler) finish(id string, terminal bool, outcome Outcome) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.active--
	metrics.QueueActiveWorkers.Set(float64(s.active))
	closed := s.closed
	s.mu.Unlock()

	if terminal {
		metrics.QueueItemsProcessed.WithLabelValues(string(outcome)).Inc()
		if s.onTerminal != nil {
			s.onTerminal(id, outcome)
		}
	}

	if closed {
		return
	}

	time.AfterFunc(s.cfg.TickDelay, s.dispatch)
	if terminal {
		s.Recompute()
	}
}

// processItem runs the worker resolution order: durable store, remote
// generator, then local probe. It returns whether a terminal state was
// reached; a transient failure leaves the item unchecked for the next
// recomputation pass.
func (s *Scheduler) processItem(ctx context.Context, id string) (bool, Outcome) {
	item := s.state.Get(id)
	if item == nil {
		// Navigated away; the result would be inert anyway.
		return false, OutcomeFailed
	}

	// 1. Durable store.
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		logging.Debug("Store read failed for %s, probing instead: %v", id, err)
	}
	if rec != nil {
		if rec.IsBroken {
			s.state.Update(id, func(m *gallery.MediaItem) {
				m.Checked = true
				m.IsBroken = true
			})
			return true, OutcomeFailed
		}
		if len(rec.Payload) > 0 {
			s.adoptThumbnail(id, rec.Payload, "image/jpeg")
			return true, OutcomeDone
		}
	}

	// 2. Remote generator fast path.
	if s.remote != nil && s.remote.Available(ctx) {
		if payload, contentType, ok := s.remote.Fetch(ctx, id); ok {
			s.adoptThumbnail(id, payload, contentType)
			if err := s.store.Put(ctx, id, payload, false); err != nil {
				logging.Debug("Failed to persist remote thumbnail for %s: %v", id, err)
			}
			return true, OutcomeDone
		}
	}

	// 3. Resolve a playable URL. Failure here is transient: the item
	// stays unchecked and is retried on the next recomputation pass.
	url, err := s.rslv.Resolve(ctx, id)
	if err != nil {
		logging.Debug("Resolve failed for %s: %v", id, err)
		return false, OutcomeFailed
	}
	s.state.Update(id, func(m *gallery.MediaItem) { m.ResolvedURL = url })

	// 4. Probe by kind and classify.
	var result probe.Result
	if item.Kind == gallery.KindVideo {
		result = s.prober.ProbeVideo(ctx, url, s.cfg.DarknessThreshold)
	} else {
		result = s.prober.ProbeImage(ctx, url, s.cfg.DarknessThreshold)
	}

	if result.IsBad && s.cfg.HideBroken {
		if err := s.store.Put(ctx, id, nil, true); err != nil {
			logging.Debug("Failed to persist broken mark for %s: %v", id, err)
		}
		s.state.Update(id, func(m *gallery.MediaItem) {
			m.Checked = true
			m.IsBroken = true
		})
		return true, OutcomeFailed
	}

	if len(result.Payload) > 0 {
		s.adoptThumbnail(id, result.Payload, "image/jpeg")
	}
	if err := s.store.Put(ctx, id, result.Payload, result.IsBad); err != nil {
		logging.Debug("Failed to persist probe result for %s: %v", id, err)
	}

	s.state.Update(id, func(m *gallery.MediaItem) {
		m.Checked = true
		m.IsBroken = result.IsBad
	})
	if result.IsBad {
		return true, OutcomeFailed
	}
	return true, OutcomeDone
}

// adoptThumbnail registers a payload in the blob registry (releasing any
// predecessor handle for the item) and attaches the handle to the item.
func (s *Scheduler) adoptThumbnail(id string, payload []byte, contentType string) {
	handle := s.blobs.NewHandle(payload, contentType)
	s.blobs.Track(id, handle)
	s.state.Update(id, func(m *gallery.MediaItem) {
		m.Checked = true
		m.Thumbnail = handle
	})
}

// Snapshot reports the current queue occupancy.
func (s *Scheduler) Snapshot() (pending, inFlight, active int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.inFlight), s.active
}

// Close stops dispatching and cancels outstanding workers' context. It
// does not wait for workers; use Wait for that.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until all in-flight workers have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
