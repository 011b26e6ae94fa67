package startup

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOST_API_URL", "ws://homeassistant.local:8123/api/websocket")
	t.Setenv("DATA_DIR", t.TempDir())
}

// TestLoadConfigDefaults tests the default configuration values.
func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != "8080" {
		t.Errorf("Port = %q, want 8080", config.Port)
	}
	if config.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q, want 9090", config.MetricsPort)
	}
	if !config.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if config.PageSize != 60 {
		t.Errorf("PageSize = %d, want 60", config.PageSize)
	}
	if config.DarknessThreshold != 10 {
		t.Errorf("DarknessThreshold = %d, want 10", config.DarknessThreshold)
	}
	if !config.HideBroken {
		t.Error("HideBroken should default to true")
	}
	if config.Constrained {
		t.Error("Constrained should default to false")
	}
	if config.ThumbnailWidth != 320 || config.ThumbnailHeight != 180 || config.ThumbnailQuality != 70 {
		t.Errorf("thumbnail defaults = %dx%d q%d, want 320x180 q70",
			config.ThumbnailWidth, config.ThumbnailHeight, config.ThumbnailQuality)
	}
	if config.CacheRetention != 720*time.Hour {
		t.Errorf("CacheRetention = %v, want 720h", config.CacheRetention)
	}
	if config.StartPath != "media-source://media_source" {
		t.Errorf("StartPath = %q", config.StartPath)
	}
	if config.DatabasePath == "" {
		t.Error("DatabasePath should be derived from the data directory")
	}
}

// TestLoadConfigRequiresHostURL tests the HOST_API_URL validation.
func TestLoadConfigRequiresHostURL(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("HOST_API_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should fail without HOST_API_URL")
	}

	t.Setenv("HOST_API_URL", "http://not-a-websocket")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should reject a non-websocket URL")
	}
}

// TestLoadConfigOverrides tests environment overrides and the fallback
// for malformed values.
func TestLoadConfigOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CONSTRAINED_DEVICE", "true")
	t.Setenv("HIDE_BROKEN", "false")
	t.Setenv("DARKNESS_THRESHOLD", "500")
	t.Setenv("CACHE_RETENTION", "not-a-duration")
	t.Setenv("THUMBNAIL_QUALITY", "0")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != "9000" {
		t.Errorf("Port = %q, want 9000", config.Port)
	}
	if !config.Constrained {
		t.Error("Constrained should be true")
	}
	if config.HideBroken {
		t.Error("HideBroken should be false")
	}
	if config.DarknessThreshold != 10 {
		t.Errorf("out-of-range DARKNESS_THRESHOLD should fall back to 10, got %d", config.DarknessThreshold)
	}
	if config.CacheRetention != 720*time.Hour {
		t.Errorf("malformed CACHE_RETENTION should fall back to 720h, got %v", config.CacheRetention)
	}
	if config.ThumbnailQuality != 70 {
		t.Errorf("out-of-range THUMBNAIL_QUALITY should fall back to 70, got %d", config.ThumbnailQuality)
	}
}

// TestGetEnvHelpers tests the typed environment readers.
func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BOOL_BAD", "maybe")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "many")

	if got := getEnv("TEST_STRING", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
	if got := getEnv("TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
	if !getEnvBool("TEST_BOOL", false) {
		t.Error("getEnvBool should parse true")
	}
	if !getEnvBool("TEST_BOOL_BAD", true) {
		t.Error("getEnvBool should fall back on unparseable input")
	}
	if got := getEnvInt("TEST_INT", 0); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	if got := getEnvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want fallback 7", got)
	}
}

// TestGetBuildInfo tests build metadata exposure.
func TestGetBuildInfo(t *testing.T) {
	t.Parallel()

	info := GetBuildInfo()
	if info.Version == "" {
		t.Error("Version should never be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should never be empty")
	}
}
