package gallery

import (
	"strings"
	"time"

	"lookout-gallery/internal/blob"
	"lookout-gallery/internal/hostapi"
)

// Kind classifies a browse entry.
type Kind string

// Item kinds as reported by the browse collaborator.
const (
	KindContainer Kind = "container"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
)

// IsContainer reports whether the kind is an expandable folder.
func (k Kind) IsContainer() bool {
	return k == KindContainer
}

// titleDateLayout is the timestamp prefix convention used by recorder
// filenames, e.g. "20240115093000_cam1.mp4".
const titleDateLayout = "20060102150405"

// MediaItem is one browse entry extended with local pipeline state.
// Checked, IsBroken, ResolvedURL and Thumbnail are mutated exclusively
// through State.Update; readers see them via the copying State accessors,
// never through shared pointers.
type MediaItem struct {
	ContentID    string
	Kind         Kind
	Title        string
	DisplayTitle string
	CanExpand    bool

	// Taken is the timestamp parsed from the title; zero when the title
	// carries no parseable date.
	Taken time.Time

	ResolvedURL string
	Thumbnail   *blob.Handle
	Checked     bool
	IsBroken    bool
}

// FromBrowse builds a MediaItem from a browse listing entry.
func FromBrowse(child hostapi.BrowseChild) *MediaItem {
	item := &MediaItem{
		ContentID: child.ContentID,
		Kind:      Kind(child.Kind),
		Title:     child.Title,
		CanExpand: child.CanExpand,
	}

	if taken, ok := ParseTitleDate(child.Title); ok {
		item.Taken = taken
		item.DisplayTitle = taken.Format("Jan 2, 2006 15:04")
	} else {
		item.DisplayTitle = child.Title
	}
	return item
}

// HasDate reports whether the item's title carried a parseable timestamp.
func (m *MediaItem) HasDate() bool {
	return !m.Taken.IsZero()
}

// ParseTitleDate extracts a YYYYMMDDHHMMSS timestamp prefix from a title
// such as "20240115093000_cam1.mp4". It returns ok=false when the title
// does not start with a valid timestamp.
func ParseTitleDate(title string) (time.Time, bool) {
	base := title
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}

	digits := 0
	for digits < len(base) && base[digits] >= '0' && base[digits] <= '9' {
		digits++
	}
	if digits < len(titleDateLayout) {
		return time.Time{}, false
	}

	parsed, err := time.ParseInLocation(titleDateLayout, base[:len(titleDateLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
