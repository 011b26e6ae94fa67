package workers

import (
	"os"
	"strconv"
)

// Default worker ceilings. The ceiling is fixed for the session: one slot
// on resource-constrained devices, three otherwise.
const (
	DefaultCeiling     = 3
	ConstrainedCeiling = 1
)

// Ceiling returns the concurrency ceiling for the thumbnail pipeline.
//
// Can be overridden with the GALLERY_WORKERS environment variable.
func Ceiling(constrained bool) int {
	if override := os.Getenv("GALLERY_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return count
		}
	}

	if constrained {
		return ConstrainedCeiling
	}
	return DefaultCeiling
}
