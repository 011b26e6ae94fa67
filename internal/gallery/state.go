package gallery

import (
	"sync"

	"lookout-gallery/internal/logging"
)

// State holds the item list for the currently browsed path. It is the
// single source of truth the scheduler computes pending work from and the
// projection renders from.
type State struct {
	mu    sync.RWMutex
	path  string
	title string
	items []*MediaItem
	byID  map[string]*MediaItem
}

// NewState creates an empty gallery state.
func NewState() *State {
	return &State{byID: make(map[string]*MediaItem)}
}

// Path returns the currently browsed path identifier.
func (s *State) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Title returns the browse title for the current path.
func (s *State) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// Replace swaps in a freshly browsed item list, discarding all previous
// local state. It returns the items that were dropped; their thumbnail
// handles must be released by the caller.
func (s *State) Replace(path, title string, items []*MediaItem) (dropped []*MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped = s.items
	s.path = path
	s.title = title
	s.items = items
	s.byID = make(map[string]*MediaItem, len(items))
	for _, item := range items {
		s.byID[item.ContentID] = item
	}

	logging.Debug("Gallery state replaced: path=%s items=%d dropped=%d", path, len(items), len(dropped))
	return dropped
}

// MergeRefresh applies a silent refresh: fresh is the newly browsed list
// for the same path, and local state carries forward only for items that
// had already completed processing (cache wins). It returns the old items
// no longer present in fresh; their handles must be released.
func (s *State) MergeRefresh(title string, fresh []*MediaItem) (dropped []*MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, dropped := Merge(s.items, fresh)

	s.title = title
	s.items = merged
	s.byID = make(map[string]*MediaItem, len(merged))
	for _, item := range merged {
		s.byID[item.ContentID] = item
	}

	logging.Debug("Gallery state merged: items=%d dropped=%d", len(merged), len(dropped))
	return dropped
}

// Merge reconciles a previous item list with a freshly fetched one. For
// every fresh item that existed before and was already checked, the
// completed local state (checked flag, broken classification, thumbnail
// handle, resolved URL) carries forward. Unchecked old items contribute
// nothing; they will be reprocessed. The second return value lists old
// items absent from the fresh list.
func Merge(old, fresh []*MediaItem) (merged, dropped []*MediaItem) {
	prev := make(map[string]*MediaItem, len(old))
	for _, item := range old {
		prev[item.ContentID] = item
	}

	merged = make([]*MediaItem, 0, len(fresh))
	for _, item := range fresh {
		if before, ok := prev[item.ContentID]; ok {
			delete(prev, item.ContentID)
			if before.Checked {
				item.Checked = true
				item.IsBroken = before.IsBroken
				item.Thumbnail = before.Thumbnail
				item.ResolvedURL = before.ResolvedURL
			}
		}
		merged = append(merged, item)
	}

	for _, item := range prev {
		dropped = append(dropped, item)
	}
	return merged, dropped
}

// Items returns a snapshot of the current item list in visible order.
// The snapshot holds copies taken under the lock; readers never share
// item memory with the workers mutating through Update.
func (s *State) Items() []*MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*MediaItem, len(s.items))
	for i, item := range s.items {
		copied := *item
		snapshot[i] = &copied
	}
	return snapshot
}

// Get returns a copy of the item for id, or nil when the id is not in
// the current list (results for such items are inert).
func (s *State) Get(id string) *MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.byID[id]
	if !ok {
		return nil
	}
	copied := *item
	return &copied
}

// Update applies fn to the item for id under the state lock. It is the
// single mutation point for worker results.
func (s *State) Update(id string, fn func(*MediaItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.byID[id]
	if !ok {
		return false
	}
	fn(item)
	return true
}
