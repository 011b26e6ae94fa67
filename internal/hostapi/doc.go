// Package hostapi speaks the host's websocket command API: folder
// browsing, playable URL resolution, and the optional server-side
// thumbnail generator. Requests and responses are JSON envelopes matched
// by a correlation sequence over a single connection that reconnects with
// backoff.
package hostapi
