package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/quake-watch/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Provider            domain.ProviderID
	USGSBaseURL         string
	EMSCBaseURL         string
	FetchConnectTimeout time.Duration
	FetchReadTimeout    time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Static device position; both halves set or neither.
	LocationLat   string
	LocationLon   string
	LocationPlace string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	// ArchivePath is the DuckDB file for the fetch archive; empty disables it.
	ArchivePath string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present;
// variables already in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	provider, err := domain.ParseProviderID(sharedcfg.EnvOrDefault("QUAKE_PROVIDER", "emsc"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUAKE_PROVIDER: %w", err)
	}

	connectTimeout, err := parsePositiveDuration("FETCH_CONNECT_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	readTimeout, err := parsePositiveDuration("FETCH_READ_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		Provider:            provider,
		USGSBaseURL:         sharedcfg.EnvOrDefault("USGS_BASE_URL", domain.USGSBaseURL),
		EMSCBaseURL:         sharedcfg.EnvOrDefault("EMSC_BASE_URL", domain.EMSCBaseURL),
		FetchConnectTimeout: connectTimeout,
		FetchReadTimeout:    readTimeout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		LocationLat:   strings.TrimSpace(os.Getenv("LOCATION_LAT")),
		LocationLon:   strings.TrimSpace(os.Getenv("LOCATION_LON")),
		LocationPlace: strings.TrimSpace(os.Getenv("LOCATION_PLACE")),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-records"),
		KafkaEnabled: kafkaEnabled,

		ArchivePath: strings.TrimSpace(os.Getenv("ARCHIVE_PATH")),
	}

	if (cfg.LocationLat == "") != (cfg.LocationLon == "") {
		return nil, errors.New("LOCATION_LAT and LOCATION_LON must be set together")
	}
	if cfg.LocationLat != "" {
		coords := domain.Coordinates{Latitude: cfg.LocationLat, Longitude: cfg.LocationLon}
		if err := coords.Validate(); err != nil {
			return nil, fmt.Errorf("invalid LOCATION_LAT/LOCATION_LON: %w", err)
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

// Providers returns the provider adapters with any configured endpoint overrides.
func (c *Config) Providers() domain.Providers {
	return domain.Providers{
		USGS: domain.USGS{Endpoint: c.USGSBaseURL},
		EMSC: domain.EMSC{Endpoint: c.EMSCBaseURL},
	}
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
