package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lookout-gallery/internal/blob"
	"lookout-gallery/internal/gallery"
	"lookout-gallery/internal/hostapi"
	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/scheduler"
	"lookout-gallery/internal/startup"
)

// Handlers wires the HTTP rendering boundary to the pipeline components.
type Handlers struct {
	state *gallery.State
	sched *scheduler.Scheduler
	blobs *blob.Registry
	host  *hostapi.Client

	hideBroken bool
	pageSize   int
	startPath  string
}

// New creates the handler set.
func New(state *gallery.State, sched *scheduler.Scheduler, blobs *blob.Registry, host *hostapi.Client, config *startup.Config) *Handlers {
	return &Handlers{
		state:      state,
		sched:      sched,
		blobs:      blobs,
		host:       host,
		hideBroken: config.HideBroken,
		pageSize:   config.PageSize,
		startPath:  config.StartPath,
	}
}

// Navigate browses path and replaces the current item list. Thumbnail
// handles of the discarded list are released before the scheduler picks
// up the new one.
func (h *Handlers) Navigate(ctx context.Context, path string) error {
	result, err := h.host.Browse(ctx, path)
	if err != nil {
		return err
	}

	items := make([]*gallery.MediaItem, 0, len(result.Children))
	for _, child := range result.Children {
		items = append(items, gallery.FromBrowse(child))
	}

	dropped := h.state.Replace(path, result.Title, items)
	for _, item := range dropped {
		h.blobs.Release(item.ContentID)
	}

	h.sched.Recompute()
	return nil
}

// Refresh silently re-browses the current path, merging completed local
// state forward so cached classifications win over re-probing.
func (h *Handlers) Refresh(ctx context.Context) error {
	path := h.state.Path()
	if path == "" {
		path = h.startPath
	}

	result, err := h.host.Browse(ctx, path)
	if err != nil {
		return err
	}

	fresh := make([]*gallery.MediaItem, 0, len(result.Children))
	for _, child := range result.Children {
		fresh = append(fresh, gallery.FromBrowse(child))
	}

	dropped := h.state.MergeRefresh(result.Title, fresh)
	for _, item := range dropped {
		h.blobs.Release(item.ContentID)
	}

	h.sched.Recompute()
	return nil
}

// GetGallery renders the current view. Sort, direction and page come from
// the query string; a change in any of them is a visible-list change, so
// a recomputation is triggered as well.
func (h *Handlers) GetGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := gallery.Options{
		SortBy:     gallery.SortByDate,
		HideBroken: h.hideBroken,
		PageSize:   h.pageSize,
	}
	if q.Get("sort") == string(gallery.SortByName) {
		opts.SortBy = gallery.SortByName
	}
	if q.Get("dir") == "desc" {
		opts.Descending = true
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 0 {
		opts.Page = page
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil && size > 0 {
		opts.PageSize = size
	}

	view := gallery.Project(h.state.Title(), h.state.Items(), opts)
	h.sched.Recompute()

	writeJSON(w, view)
}

// NavigateRequest is the body of a navigation request.
type NavigateRequest struct {
	Path string `json:"path"`
}

// PostNavigate browses into a folder.
func (h *Handlers) PostNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.Navigate(r.Context(), req.Path); err != nil {
		logging.Warn("Browse failed for %s: %v", req.Path, err)
		writeError(w, browseStatus(err), "browse failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostRefresh re-browses the current path with merge.
func (h *Handlers) PostRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Refresh(r.Context()); err != nil {
		logging.Warn("Refresh failed: %v", err)
		writeError(w, browseStatus(err), "refresh failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostReconcile revalidates thumbnail handles after the consumer regains
// visibility.
func (h *Handlers) PostReconcile(w http.ResponseWriter, r *http.Request) {
	h.sched.Reconcile(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// browseStatus maps a collaborator failure to an HTTP status: a down host
// connection is a 503 the consumer retries with manual refresh.
func browseStatus(err error) int {
	if errors.Is(err, hostapi.ErrNotConnected) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Debug("failed to encode error response: %v", err)
	}
}
