// Package store implements the durable thumbnail cache: a versioned
// key-to-record SQLite table keyed by content identifier, with time-based
// expiry and a destructive rebuild when the schema version changes.
//
// The store is deliberately forgiving: a severed connection is reopened on
// next use, expired records read back as absent, and write failures are
// surfaced as ordinary errors that callers treat as non-fatal.
package store
