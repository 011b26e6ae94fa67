package probe

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"lookout-gallery/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes libvips for fast thumbnail encoding. Call once at
// startup; the pure-Go pipeline is used when initialization fails or is
// skipped.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	level := vips.LogLevelError
	if logging.IsDebugEnabled() {
		level = vips.LogLevelWarning
	}
	vips.LoggingSettings(func(domain string, _ vips.LogLevel, msg string) {
		logging.Debug("[vips/%s] %s", domain, msg)
	}, level)

	// Conservative memory settings; one frame at a time is enough for
	// thumbnail work.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
	}
}

// IsVipsAvailable reports whether the vips fast path can be used.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// vipsThumbnail shrinks the frame during decode and exports a JPEG at the
// requested quality. Much more memory efficient than decoding the full
// frame first.
func vipsThumbnail(frame []byte, width, height, quality int) ([]byte, error) {
	ref, err := vips.NewImageFromBuffer(frame)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load frame: %w", err)
	}
	defer ref.Close()

	if err := ref.Thumbnail(width, height, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	payload, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return payload, nil
}
