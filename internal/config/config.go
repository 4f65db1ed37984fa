package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all runtime settings, populated from environment variables.
// The run plan (regions, sources, windows) lives in a separate YAML file; see
// LoadPlan.
type Config struct {
	PlanPath        string
	OutputDir       string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Workers         int

	// Raster query service.
	RasterEndpoint   string
	RasterToken      string
	RasterTimeout    time.Duration
	RasterCacheSize  int
	RasterMaxRetries int

	// Archive object storage.
	ArchiveDriver      string
	ArchiveS3Bucket    string
	ArchiveS3Region    string
	ArchiveS3Endpoint  string
	ArchiveS3PathStyle bool
	ArchiveS3Prefix    string

	// Extraction failure ledger.
	LedgerDriver string
	LedgerDSN    string

	// Run notifications (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	rasterTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RASTER_TIMEOUT", "60s"))
	if err != nil || rasterTimeout <= 0 {
		return nil, errors.New("invalid RASTER_TIMEOUT")
	}

	workers, err := parsePositiveInt("WORKERS", 1, 64)
	if err != nil {
		return nil, err
	}
	retries, err := parseNonNegativeInt("RASTER_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	pathStyle, err := parseBool("ARCHIVE_S3_PATH_STYLE", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PlanPath:        os.Getenv("PLAN_PATH"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "./output"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Workers:         workers,

		RasterEndpoint:   os.Getenv("RASTER_ENDPOINT"),
		RasterToken:      os.Getenv("RASTER_TOKEN"),
		RasterTimeout:    rasterTimeout,
		RasterCacheSize:  parseCacheSize(),
		RasterMaxRetries: retries,

		ArchiveDriver:      sharedcfg.EnvOrDefault("ARCHIVE_DRIVER", "fs"),
		ArchiveS3Bucket:    os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:    sharedcfg.EnvOrDefault("ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Endpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveS3PathStyle: pathStyle,
		ArchiveS3Prefix:    os.Getenv("ARCHIVE_S3_PREFIX"),

		LedgerDriver: sharedcfg.EnvOrDefault("LEDGER_DRIVER", "sqlite"),
		LedgerDSN:    os.Getenv("LEDGER_DSN"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ecoregion-archive-events"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ArchiveDriver {
	case "fs", "s3":
	default:
		return fmt.Errorf("invalid ARCHIVE_DRIVER %q: want fs or s3", c.ArchiveDriver)
	}
	if c.ArchiveDriver == "s3" && c.ArchiveS3Bucket == "" {
		return errors.New("ARCHIVE_DRIVER is s3 but ARCHIVE_S3_BUCKET is not set")
	}

	switch c.LedgerDriver {
	case "sqlite":
		if c.LedgerDSN == "" {
			c.LedgerDSN = "file:" + c.OutputDir + "/ledger.db"
		}
	case "postgres":
		if c.LedgerDSN == "" {
			return errors.New("LEDGER_DRIVER is postgres but LEDGER_DSN is not set")
		}
	case "none":
	default:
		return fmt.Errorf("invalid LEDGER_DRIVER %q: want sqlite, postgres or none", c.LedgerDriver)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

// parseCacheSize returns the raster response cache size. The cache is off
// (0) unless set: a single reconcile pass never repeats a query.
func parseCacheSize() int {
	if s := os.Getenv("RASTER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func parsePositiveInt(key string, fallback, upper int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > upper {
		return 0, fmt.Errorf("invalid %s: must be 1-%d", key, upper)
	}
	return n, nil
}

func parseNonNegativeInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q is not a boolean", key, s)
	}
	return b, nil
}
