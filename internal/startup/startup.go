package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"lookout-gallery/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	HostAPIURL string
	DataDir    string
	Port       string

	MetricsPort     string
	MetricsEnabled  bool
	LogBlobRequests bool
	LogHealthChecks bool

	StartPath string
	PageSize  int
	Warmup    bool

	DarknessThreshold int
	HideBroken        bool
	Constrained       bool
	SkipVideoProbe    bool

	ThumbnailWidth   int
	ThumbnailHeight  int
	ThumbnailQuality int

	CacheRetention time.Duration

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	hostAPIURL := getEnv("HOST_API_URL", "")
	dataDir := getEnv("DATA_DIR", "/data")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logBlobRequests := getEnvBool("LOG_BLOB_REQUESTS", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	startPath := getEnv("START_PATH", "media-source://media_source")
	pageSize := getEnvInt("PAGE_SIZE", 60)
	warmup := getEnvBool("WARMUP", true)
	darknessThreshold := getEnvInt("DARKNESS_THRESHOLD", 10)
	hideBroken := getEnvBool("HIDE_BROKEN", true)
	constrained := getEnvBool("CONSTRAINED_DEVICE", false)
	skipVideoProbe := getEnvBool("SKIP_VIDEO_PROBE", false)
	thumbWidth := getEnvInt("THUMBNAIL_WIDTH", 320)
	thumbHeight := getEnvInt("THUMBNAIL_HEIGHT", 180)
	thumbQuality := getEnvInt("THUMBNAIL_QUALITY", 70)
	retentionStr := getEnv("CACHE_RETENTION", "720h")

	logging.Info("  HOST_API_URL:        %s", hostAPIURL)
	logging.Info("  DATA_DIR:            %s", dataDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  START_PATH:          %s", startPath)
	logging.Info("  PAGE_SIZE:           %d", pageSize)
	logging.Info("  WARMUP:              %v", warmup)
	logging.Info("  DARKNESS_THRESHOLD:  %d", darknessThreshold)
	logging.Info("  HIDE_BROKEN:         %v", hideBroken)
	logging.Info("  CONSTRAINED_DEVICE:  %v", constrained)
	logging.Info("  SKIP_VIDEO_PROBE:    %v", skipVideoProbe)
	logging.Info("  THUMBNAIL:           %dx%d q%d", thumbWidth, thumbHeight, thumbQuality)
	logging.Info("  CACHE_RETENTION:     %s", retentionStr)
	logging.Info("  LOG_BLOB_REQUESTS:   %v", logBlobRequests)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if hostAPIURL == "" {
		return nil, fmt.Errorf("HOST_API_URL is required")
	}
	if !strings.HasPrefix(hostAPIURL, "ws://") && !strings.HasPrefix(hostAPIURL, "wss://") {
		return nil, fmt.Errorf("HOST_API_URL must be a ws:// or wss:// URL, got %q", hostAPIURL)
	}

	retention, err := time.ParseDuration(retentionStr)
	if err != nil || retention <= 0 {
		logging.Warn("  Invalid CACHE_RETENTION, using default: 720h")
		retention = 720 * time.Hour
	}

	if darknessThreshold < 0 || darknessThreshold > 255 {
		logging.Warn("  DARKNESS_THRESHOLD out of range [0,255], using default: 10")
		darknessThreshold = 10
	}
	if thumbQuality < 1 || thumbQuality > 100 {
		logging.Warn("  THUMBNAIL_QUALITY out of range [1,100], using default: 70")
		thumbQuality = 70
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}

	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for the thumbnail cache): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	config := &Config{
		HostAPIURL:        hostAPIURL,
		DataDir:           dataDir,
		Port:              port,
		MetricsPort:       metricsPort,
		MetricsEnabled:    metricsEnabled,
		LogBlobRequests:   logBlobRequests,
		LogHealthChecks:   logHealthChecks,
		StartPath:         startPath,
		PageSize:          pageSize,
		Warmup:            warmup,
		DarknessThreshold: darknessThreshold,
		HideBroken:        hideBroken,
		Constrained:       constrained,
		SkipVideoProbe:    skipVideoProbe,
		ThumbnailWidth:    thumbWidth,
		ThumbnailHeight:   thumbHeight,
		ThumbnailQuality:  thumbQuality,
		CacheRetention:    retention,
		DatabasePath:      filepath.Join(dataDir, "thumbnails.db"),
	}

	return config, nil
}

// LogStoreInit logs thumbnail store initialization
func LogStoreInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Store initialized in %v", duration)
}

// LogProbeInit logs media probe initialization and reports tool availability
func LogProbeInit(ffmpegAvailable, vipsAvailable, skipVideo bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA PROBE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if vipsAvailable {
		logging.Info("  [OK] libvips is available (fast thumbnail encoding)")
	} else {
		logging.Info("  libvips unavailable, using pure-Go thumbnail encoding")
	}

	if skipVideo {
		logging.Warn("  Video probing disabled (SKIP_VIDEO_PROBE=true)")
		logging.Warn("  Videos will show without validation")
		return
	}

	if ffmpegAvailable {
		logging.Info("  [OK] FFmpeg/FFprobe are available")
	} else {
		logging.Warn("  FFmpeg not found in PATH")
		logging.Warn("  Local video probing will rely on host-side thumbnails")
	}
}

// LogSchedulerInit logs work queue initialization
func LogSchedulerInit(ceiling int, constrained bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCHEDULER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Worker ceiling: %d", ceiling)
	if constrained {
		logging.Info("  (Constrained device mode)")
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logBlobRequests, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logBlobRequests {
		logging.Info("    Blob request logging: ON")
	} else {
		logging.Info("    Blob request logging: OFF (set LOG_BLOB_REQUESTS=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Gallery API:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __               __               __
   / /   ____  ____ / /______  __  __/ /_
  / /   / __ \/ __ \/ //_/ __ \/ / / / __/
 / /___/ /_/ / /_/ / ,< / /_/ / /_/ / /_
/_____/\____/\____/_/|_|\____/\__,_/\__/  gallery

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed, so not an error
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
