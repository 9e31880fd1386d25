package utils

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("EVENTHUB_HTTP_ADDR", "")
	t.Setenv("EVENTHUB_REPORT_DIR", "")

	cfg := LoadServerConfig()
	if cfg.Addr != ":8080" {
		t.Errorf("addr: %q", cfg.Addr)
	}
	if cfg.ReportDir != "/tmp/eventhub_reports" {
		t.Errorf("report dir: %q", cfg.ReportDir)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("EVENTHUB_HTTP_ADDR", ":9999")
	t.Setenv("EVENTHUB_REPORT_DIR", "/var/reports")

	cfg := LoadServerConfig()
	if cfg.Addr != ":9999" || cfg.ReportDir != "/var/reports" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadGeoConfig(t *testing.T) {
	t.Setenv("EVENTHUB_GEOCODE", "false")
	t.Setenv("EVENTHUB_GEOCODER", "photon")
	t.Setenv("EVENTHUB_GEOCODER_FALLBACK", "false")

	cfg := LoadGeoConfig()
	if cfg.Enabled || cfg.Provider != "photon" || cfg.AllowFallback {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadGeoConfigDefaults(t *testing.T) {
	t.Setenv("EVENTHUB_GEOCODE", "")
	t.Setenv("EVENTHUB_GEOCODER", "")
	t.Setenv("EVENTHUB_GEOCODER_FALLBACK", "")

	cfg := LoadGeoConfig()
	if !cfg.Enabled || cfg.Provider != "nominatim" || !cfg.AllowFallback {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadRunnerConfig(t *testing.T) {
	t.Setenv("EVENTHUB_WORKERS", "8")
	t.Setenv("EVENTHUB_RETRY_DELAY", "500ms")
	t.Setenv("EVENTHUB_RETRY_ATTEMPTS", "not-a-number")

	cfg := LoadRunnerConfig()
	if cfg.Workers != 8 {
		t.Errorf("workers: %d", cfg.Workers)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Errorf("retry delay: %v", cfg.RetryDelay)
	}
	// Unparseable values fall back to the default.
	if cfg.Attempts != 3 {
		t.Errorf("attempts: %d", cfg.Attempts)
	}
}
