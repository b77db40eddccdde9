package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Latitude  float64
	Longitude float64

	// OpenMeteoBaseURL overrides the public API endpoint, mainly to point
	// the monitor at cmd/mockmeteo during development.
	OpenMeteoBaseURL string
	FetchTimeout     time.Duration

	PollInterval time.Duration
	AutoRefresh  bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	lat, err := parseFloatEnv("LATITUDE", 52.52)
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatEnv("LONGITUDE", 13.405)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDurationEnv("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDurationEnv("POLL_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Latitude:  lat,
		Longitude: lon,

		OpenMeteoBaseURL: os.Getenv("OPENMETEO_BASE_URL"),
		FetchTimeout:     fetchTimeout,

		PollInterval: pollInterval,
		AutoRefresh:  os.Getenv("AUTO_REFRESH") == "true",

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.Latitude < -90 || cfg.Latitude > 90 {
		return nil, errors.New("LATITUDE must be between -90 and 90")
	}
	if cfg.Longitude < -180 || cfg.Longitude > 180 {
		return nil, errors.New("LONGITUDE must be between -180 and 180")
	}

	return cfg, nil
}

// Coordinates returns the fixed location the monitor watches.
func (c *Config) Coordinates() domain.Coordinates {
	return domain.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
