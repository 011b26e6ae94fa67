// Package gallery holds the item model for the currently browsed path and
// projects it into the ordered, filtered, paginated view the rendering
// layer consumes.
//
// The state is single-writer: browse results replace or merge the item
// list, and worker results mutate individual items through Update. The
// projection is a pure function over a snapshot of that state.
package gallery
