package gallery

import (
	"sort"
	"strings"
)

// SortMode selects the ordering of the projected view.
type SortMode string

// Supported sort modes.
const (
	SortByName SortMode = "name"
	SortByDate SortMode = "date"
)

// Options control filtering, ordering and pagination of the projection.
type Options struct {
	SortBy     SortMode
	Descending bool

	// HideBroken excludes items classified broken from the view and from
	// pagination math.
	HideBroken bool

	// Page and PageSize paginate the filtered, sorted sequence. PageSize
	// <= 0 disables pagination.
	Page     int
	PageSize int
}

// ViewItem is the per-item shape consumed by the rendering layer.
type ViewItem struct {
	ContentID    string `json:"contentId"`
	DisplayTitle string `json:"displayTitle"`
	Kind         Kind   `json:"kind"`
	CanExpand    bool   `json:"canExpand"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	ResolvedURL  string `json:"resolvedUrl,omitempty"`
	IsBroken     bool   `json:"isBroken"`
	Checked      bool   `json:"checked"`
}

// View is the ordered, paginated sequence to render, plus the aggregates
// the rendering layer displays.
type View struct {
	Title       string     `json:"title"`
	Items       []ViewItem `json:"items"`
	HiddenCount int        `json:"hiddenCount"`
	HasMore     bool       `json:"hasMore"`
	Total       int        `json:"total"`
}

// Project produces the renderable view for the given item list. Filtering
// happens first, then sorting, then pagination — broken items excluded by
// the filter never count toward pagination. Containers bypass thumbnail
// logic entirely and are never hidden.
func Project(title string, items []*MediaItem, opts Options) View {
	visible := make([]*MediaItem, 0, len(items))
	hidden := 0
	for _, item := range items {
		if opts.HideBroken && !item.Kind.IsContainer() && item.IsBroken {
			hidden++
			continue
		}
		visible = append(visible, item)
	}

	sortItems(visible, opts)

	total := len(visible)
	start, end := 0, total
	if opts.PageSize > 0 {
		start = opts.Page * opts.PageSize
		if start > total {
			start = total
		}
		end = start + opts.PageSize
		if end > total {
			end = total
		}
	}

	view := View{
		Title:       title,
		Items:       make([]ViewItem, 0, end-start),
		HiddenCount: hidden,
		HasMore:     end < total,
		Total:       total,
	}

	for _, item := range visible[start:end] {
		vi := ViewItem{
			ContentID:    item.ContentID,
			DisplayTitle: item.DisplayTitle,
			Kind:         item.Kind,
			CanExpand:    item.CanExpand,
			ResolvedURL:  item.ResolvedURL,
			IsBroken:     item.IsBroken,
			Checked:      item.Checked,
		}
		if item.Thumbnail != nil && !item.Thumbnail.Released() {
			vi.ThumbnailURL = item.Thumbnail.URL()
		}
		view.Items = append(view.Items, vi)
	}
	return view
}

// sortItems orders visible in place. Containers sort ahead of media
// regardless of mode or direction; descending reverses the container and
// media segments independently. Under date sort, items without a
// parseable date sort to the end of the ascending media order, so
// descending they lead the media instead. Ties break on title then
// content id for a deterministic order.
func sortItems(items []*MediaItem, opts Options) {
	less := func(a, b *MediaItem) bool {
		if a.Kind.IsContainer() != b.Kind.IsContainer() {
			return a.Kind.IsContainer()
		}

		if opts.SortBy == SortByDate {
			switch {
			case a.HasDate() && b.HasDate():
				if !a.Taken.Equal(b.Taken) {
					return a.Taken.Before(b.Taken)
				}
			case a.HasDate():
				return true
			case b.HasDate():
				return false
			}
		}

		at := strings.ToLower(a.Title)
		bt := strings.ToLower(b.Title)
		if at != bt {
			return at < bt
		}
		return a.ContentID < b.ContentID
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })

	if opts.Descending {
		split := 0
		for split < len(items) && items[split].Kind.IsContainer() {
			split++
		}
		reverseItems(items[:split])
		reverseItems(items[split:])
	}
}

func reverseItems(items []*MediaItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
