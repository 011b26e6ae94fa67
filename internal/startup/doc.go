// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - HOST_API_URL: WebSocket URL of the host media API (required)
//   - DATA_DIR: Path to the data directory for the thumbnail cache (default: /data)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - START_PATH: Media path browsed at startup (default: media-source://media_source)
//   - PAGE_SIZE: Default gallery page size (default: 60)
//   - WARMUP: Browse START_PATH once the host connects (default: true)
//   - DARKNESS_THRESHOLD: Average luma below which a thumbnail counts as dark, 0 disables (default: 10)
//   - HIDE_BROKEN: Hide items classified as broken (default: true)
//   - CONSTRAINED_DEVICE: Use the single-worker ceiling (default: false)
//   - SKIP_VIDEO_PROBE: Never classify videos as broken (default: false)
//   - THUMBNAIL_WIDTH, THUMBNAIL_HEIGHT, THUMBNAIL_QUALITY: Encoding parameters (default: 320, 180, 70)
//   - CACHE_RETENTION: Cached record lifetime as Go duration (default: 720h)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_BLOB_REQUESTS: Log blob payload requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
package startup
