// Package blob tracks the lifetime of in-memory thumbnail payloads.
//
// Each payload gets an opaque token and is served over HTTP until its
// handle is released. The registry enforces single ownership: tracking a
// new handle for a content identifier releases the previous one, so a
// payload is never leaked and never referenced after revocation.
package blob
