package gallery

import (
	"sync"
	"testing"

	"lookout-gallery/internal/hostapi"
)

func mediaItem(id, title string, kind Kind) *MediaItem {
	return FromBrowse(hostapi.BrowseChild{
		ContentID: id,
		Kind:      string(kind),
		Title:     title,
		CanExpand: kind.IsContainer(),
	})
}

func ids(view View) []string {
	out := make([]string, 0, len(view.Items))
	for _, it := range view.Items {
		out = append(out, it.ContentID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestProjectHideBroken tests broken filtering: hidden items are counted
// and excluded from pagination, and containers are never hidden.
func TestProjectHideBroken(t *testing.T) {
	t.Parallel()

	folder := mediaItem("folder", "folder", KindContainer)
	folder.IsBroken = true // nonsensical, but must not hide a container

	ok := mediaItem("ok", "b.jpg", KindImage)
	ok.Checked = true

	broken1 := mediaItem("broken-1", "a.jpg", KindImage)
	broken1.Checked = true
	broken1.IsBroken = true
	broken2 := mediaItem("broken-2", "c.mp4", KindVideo)
	broken2.Checked = true
	broken2.IsBroken = true

	items := []*MediaItem{folder, ok, broken1, broken2}

	view := Project("Cams", items, Options{SortBy: SortByName, HideBroken: true})
	if view.HiddenCount != 2 {
		t.Errorf("HiddenCount = %d, want 2", view.HiddenCount)
	}
	if view.Total != 2 {
		t.Errorf("Total = %d, want 2", view.Total)
	}
	if !equalIDs(ids(view), []string{"folder", "ok"}) {
		t.Errorf("items = %v, want [folder ok]", ids(view))
	}

	// With the filter off everything shows and nothing is counted hidden.
	view = Project("Cams", items, Options{SortBy: SortByName})
	if view.HiddenCount != 0 {
		t.Errorf("HiddenCount = %d with filter off, want 0", view.HiddenCount)
	}
	if view.Total != 4 {
		t.Errorf("Total = %d with filter off, want 4", view.Total)
	}
}

// TestProjectSort tests name and date ordering, including the placement
// of items whose titles carry no parseable timestamp.
func TestProjectSort(t *testing.T) {
	t.Parallel()

	items := []*MediaItem{
		mediaItem("plain", "clip.mp4", KindVideo),
		mediaItem("late", "20240116120000_cam1.mp4", KindVideo),
		mediaItem("folder", "zfolder", KindContainer),
		mediaItem("early", "20240115093000_cam1.mp4", KindVideo),
	}

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "date ascending puts undated last",
			opts: Options{SortBy: SortByDate},
			want: []string{"folder", "early", "late", "plain"},
		},
		{
			name: "date descending reverses media with undated leading",
			opts: Options{SortBy: SortByDate, Descending: true},
			want: []string{"folder", "plain", "late", "early"},
		},
		{
			name: "name ascending with containers first",
			opts: Options{SortBy: SortByName},
			want: []string{"folder", "early", "late", "plain"},
		},
		{
			name: "name descending keeps containers first",
			opts: Options{SortBy: SortByName, Descending: true},
			want: []string{"folder", "plain", "late", "early"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Fresh copy per run since sorting is in place.
			in := make([]*MediaItem, len(items))
			copy(in, items)

			view := Project("Cams", in, tt.opts)
			if !equalIDs(ids(view), tt.want) {
				t.Errorf("order = %v, want %v", ids(view), tt.want)
			}
		})
	}
}

// TestProjectDescendingContainersLead tests that containers hold the
// front of the list in both directions, reversing among themselves.
func TestProjectDescendingContainersLead(t *testing.T) {
	t.Parallel()

	items := []*MediaItem{
		mediaItem("f-a", "alpha", KindContainer),
		mediaItem("f-b", "bravo", KindContainer),
		mediaItem("m", "clip.mp4", KindVideo),
	}

	view := Project("Cams", items, Options{SortBy: SortByName, Descending: true})
	if !equalIDs(ids(view), []string{"f-b", "f-a", "m"}) {
		t.Errorf("order = %v, want [f-b f-a m]", ids(view))
	}
}

// TestProjectPagination tests that pagination applies after filtering and
// sorting.
func TestProjectPagination(t *testing.T) {
	t.Parallel()

	items := []*MediaItem{
		mediaItem("a", "a.jpg", KindImage),
		mediaItem("b", "b.jpg", KindImage),
		mediaItem("c", "c.jpg", KindImage),
		mediaItem("d", "d.jpg", KindImage),
		mediaItem("e", "e.jpg", KindImage),
	}
	items[1].IsBroken = true
	items[1].Checked = true

	opts := Options{SortBy: SortByName, HideBroken: true, PageSize: 2}

	first := Project("Cams", items, opts)
	if !equalIDs(ids(first), []string{"a", "c"}) {
		t.Errorf("page 0 = %v, want [a c]", ids(first))
	}
	if !first.HasMore {
		t.Error("page 0 should report more pages")
	}
	if first.Total != 4 {
		t.Errorf("Total = %d, want 4 (broken item excluded)", first.Total)
	}

	opts.Page = 1
	second := Project("Cams", items, opts)
	if !equalIDs(ids(second), []string{"d", "e"}) {
		t.Errorf("page 1 = %v, want [d e]", ids(second))
	}
	if second.HasMore {
		t.Error("final page should not report more")
	}

	opts.Page = 5
	beyond := Project("Cams", items, opts)
	if len(beyond.Items) != 0 {
		t.Errorf("page beyond end = %v, want empty", ids(beyond))
	}
	if beyond.HasMore {
		t.Error("page beyond end should not report more")
	}
}

// TestProjectConcurrentWithUpdates runs the projection against state
// snapshots while worker-style updates mutate the same items. Under the
// race detector this verifies the rendering path never shares item
// memory with the mutating side.
func TestProjectConcurrentWithUpdates(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Replace("path", "Cams", []*MediaItem{
		mediaItem("a", "20240115093000_cam1.mp4", KindVideo),
		mediaItem("b", "b.jpg", KindImage),
	})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		broken := false
		for {
			select {
			case <-stop:
				return
			default:
			}
			broken = !broken
			s.Update("a", func(m *MediaItem) {
				m.Checked = true
				m.IsBroken = broken
				m.ResolvedURL = "http://example/a"
			})
		}
	}()

	for i := 0; i < 500; i++ {
		view := Project(s.Title(), s.Items(), Options{SortBy: SortByDate, HideBroken: true})
		if view.HiddenCount+len(view.Items) != 2 {
			t.Fatalf("view accounts for %d items, want 2", view.HiddenCount+len(view.Items))
		}
	}
	close(stop)
	wg.Wait()
}

// TestProjectThumbnailURL tests that only live thumbnail handles surface
// a URL.
func TestProjectThumbnailURL(t *testing.T) {
	t.Parallel()

	it := mediaItem("a", "a.jpg", KindImage)
	view := Project("Cams", []*MediaItem{it}, Options{})
	if view.Items[0].ThumbnailURL != "" {
		t.Error("item without a handle should have no thumbnail URL")
	}
}
