package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Track source.
	IBTrACSPath     string
	IBTrACSURL      string
	IBTrACSProvider string

	// Exposure source and caches.
	ExposureDir       string
	ExposureBaseURL   string
	ExposureTimeout   time.Duration
	ExposureCacheSize int
	ExposureCacheTTL  time.Duration
	RedisURL          string

	// Artifact storage.
	OutputDir string
	S3Bucket  string
	S3Prefix  string
	AWSRegion string

	BoundaryPath string
	DatabaseURL  string

	// Run defaults.
	ImpactThreshold    float64
	TrackBufferDeg     float64
	Pathways           []domain.Pathway
	WindFieldWorkers   int
	PathwayParallelism int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	exposureTimeout, err := parsePositiveDuration("EXPOSURE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("EXPOSURE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("EXPOSURE_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WINDFIELD_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	parallelism, err := parsePositiveInt("PATHWAY_PARALLELISM", 2)
	if err != nil {
		return nil, err
	}
	threshold, err := parsePositiveFloat("IMPACT_THRESHOLD", domain.DefaultThreshold)
	if err != nil {
		return nil, err
	}
	buffer, err := parsePositiveFloat("TRACK_BUFFER_DEG", domain.DefaultBufferDeg)
	if err != nil {
		return nil, err
	}
	pathways, err := domain.ParsePathways(sharedcfg.EnvOrDefault("PATHWAYS", "ssp245,ssp370,ssp585"))
	if err != nil {
		return nil, fmt.Errorf("invalid PATHWAYS: %w", err)
	}
	if len(pathways) == 0 {
		return nil, errors.New("PATHWAYS must name at least one pathway")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "ccart-scenario-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "ccart-run-summaries"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "ccart-impact"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		IBTrACSPath:     sharedcfg.EnvOrDefault("IBTRACS_PATH", "data/ibtracs/IBTrACS.ALL.v04r01.csv"),
		IBTrACSURL:      os.Getenv("IBTRACS_URL"),
		IBTrACSProvider: sharedcfg.EnvOrDefault("IBTRACS_PROVIDER", "usa"),

		ExposureDir:       sharedcfg.EnvOrDefault("EXPOSURE_DIR", "data/litpop"),
		ExposureBaseURL:   os.Getenv("EXPOSURE_BASE_URL"),
		ExposureTimeout:   exposureTimeout,
		ExposureCacheSize: cacheSize,
		ExposureCacheTTL:  cacheTTL,
		RedisURL:          os.Getenv("REDIS_URL"),

		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "outputs"),
		S3Bucket:  os.Getenv("S3_BUCKET"),
		S3Prefix:  os.Getenv("S3_PREFIX"),
		AWSRegion: sharedcfg.EnvOrDefault("AWS_REGION", "us-east-1"),

		BoundaryPath: os.Getenv("BOUNDARY_PATH"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		ImpactThreshold:    threshold,
		TrackBufferDeg:     buffer,
		Pathways:           pathways,
		WindFieldWorkers:   workers,
		PathwayParallelism: parallelism,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.IBTrACSPath == "" {
		return nil, errors.New("IBTRACS_PATH is required")
	}
	if cfg.ExposureDir == "" && cfg.ExposureBaseURL == "" {
		return nil, errors.New("one of EXPOSURE_DIR or EXPOSURE_BASE_URL is required")
	}

	return cfg, nil
}

// RequestDefaults returns the run options applied to requests that omit them.
func (c *Config) RequestDefaults() domain.RequestDefaults {
	return domain.RequestDefaults{
		Pathways:  c.Pathways,
		Threshold: c.ImpactThreshold,
		BufferDeg: c.TrackBufferDeg,
	}
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}

func parsePositiveFloat(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", name)
	}
	return v, nil
}
