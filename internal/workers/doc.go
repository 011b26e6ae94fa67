// Package workers decides how many concurrent worker slots the thumbnail
// pipeline runs with, based on the device class and an environment
// override.
package workers
