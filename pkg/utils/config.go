package utils

import (
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Addr      string
	ReportDir string
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("EVENTHUB_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dir := os.Getenv("EVENTHUB_REPORT_DIR")
	if dir == "" {
		dir = "/tmp/eventhub_reports"
	}

	return ServerConfig{Addr: addr, ReportDir: dir}
}

type GeoConfig struct {
	Enabled       bool
	Provider      string // "nominatim" or "photon"
	AllowFallback bool
	NominatimURL  string
	PhotonURL     string
}

func LoadGeoConfig() GeoConfig {
	cfg := GeoConfig{
		Enabled:       envBool("EVENTHUB_GEOCODE", true),
		Provider:      os.Getenv("EVENTHUB_GEOCODER"),
		AllowFallback: envBool("EVENTHUB_GEOCODER_FALLBACK", true),
		NominatimURL:  os.Getenv("EVENTHUB_NOMINATIM_URL"),
		PhotonURL:     os.Getenv("EVENTHUB_PHOTON_URL"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "nominatim"
	}
	return cfg
}

type RunnerConfig struct {
	Workers    int
	QueueSize  int
	Attempts   int
	RetryDelay time.Duration
	JobTimeout time.Duration
}

func LoadRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    envInt("EVENTHUB_WORKERS", 2),
		QueueSize:  envInt("EVENTHUB_QUEUE_SIZE", 32),
		Attempts:   envInt("EVENTHUB_RETRY_ATTEMPTS", 3),
		RetryDelay: envDuration("EVENTHUB_RETRY_DELAY", 2*time.Second),
		JobTimeout: envDuration("EVENTHUB_JOB_TIMEOUT", 10*time.Minute),
	}
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
