// Package handlers implements the HTTP rendering boundary: the projected
// gallery view, navigation and refresh, visibility reconciliation, and
// health endpoints.
package handlers
