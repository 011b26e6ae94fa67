// Package middleware provides HTTP request logging and metrics recording
// for the gallery API router.
package middleware
