// Package probe validates media items and generates thumbnails.
//
// Images are fetched, decoded and classified by sampling one
// representative pixel. Videos are checked with ffprobe (duration, fail
// closed) and ffmpeg (frame grab, fail open), then classified by the
// average brightness of pseudo-randomly sampled pixels. Every blocking
// step runs under its own timeout.
package probe
