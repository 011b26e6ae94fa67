// Package remote fetches pre-rendered thumbnails from the host's
// server-side generator, with per-session availability caching. It is an
// optional fast path; any failure yields "absent" and the worker falls
// back to in-process probing.
package remote
