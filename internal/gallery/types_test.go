package gallery

import (
	"testing"
	"time"

	"lookout-gallery/internal/hostapi"
)

// TestParseTitleDate tests timestamp extraction from recorder filenames.
func TestParseTitleDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		title  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "recorder filename",
			title:  "20240115093000_cam1.mp4",
			want:   time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local),
			wantOK: true,
		},
		{
			name:   "bare timestamp",
			title:  "20240115093000",
			want:   time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local),
			wantOK: true,
		},
		{
			name:   "timestamp with trailing digits",
			title:  "202401150930001234.jpg",
			want:   time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local),
			wantOK: true,
		},
		{
			name:  "no timestamp",
			title: "clip.mp4",
		},
		{
			name:  "too few digits",
			title: "20240115_cam1.mp4",
		},
		{
			name:  "invalid calendar date",
			title: "20241399093000.mp4",
		},
		{
			name:  "empty title",
			title: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseTitleDate(tt.title)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parsed = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestFromBrowse tests item construction and display title derivation.
func TestFromBrowse(t *testing.T) {
	t.Parallel()

	dated := FromBrowse(hostapi.BrowseChild{
		ContentID: "media-source://camera/20240115093000_cam1.mp4",
		Kind:      "video",
		Title:     "20240115093000_cam1.mp4",
	})
	if !dated.HasDate() {
		t.Error("item with timestamp title should have a date")
	}
	if dated.DisplayTitle != "Jan 15, 2024 09:30" {
		t.Errorf("DisplayTitle = %q, want formatted timestamp", dated.DisplayTitle)
	}

	plain := FromBrowse(hostapi.BrowseChild{
		ContentID: "media-source://camera/clip.mp4",
		Kind:      "video",
		Title:     "clip.mp4",
	})
	if plain.HasDate() {
		t.Error("item without timestamp title should have no date")
	}
	if plain.DisplayTitle != "clip.mp4" {
		t.Errorf("DisplayTitle = %q, want raw title", plain.DisplayTitle)
	}

	folder := FromBrowse(hostapi.BrowseChild{
		ContentID: "media-source://camera",
		Kind:      "container",
		Title:     "camera",
		CanExpand: true,
	})
	if !folder.Kind.IsContainer() {
		t.Error("container kind should classify as container")
	}
	if !folder.CanExpand {
		t.Error("CanExpand should carry over")
	}
}
