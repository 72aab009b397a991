package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables and
// an optional YAML parameter file.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// FIRMS area API.
	FIRMSMapKey  string
	FIRMSBaseURL string
	FetchTimeout time.Duration

	// Initial map parameters; changed at runtime through the params API.
	BoundingBox domain.BoundingBox
	Sources     []string
	Days        int
	Enabled     bool

	RefreshInterval time.Duration
	DiscardStale    bool
	ParamsFile      string

	// Optional Kafka layer sink.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLayerTopic string
}

// paramsFile is the YAML shape of FIRMS_PARAMS_FILE. Absent keys keep the
// environment value.
type paramsFile struct {
	Sources *[]string `yaml:"sources"`
	Days    *int      `yaml:"days"`
	Enabled *bool     `yaml:"enabled"`
	BBox    []float64 `yaml:"bbox"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FIRMS_FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("FIRMS_REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	bbox, err := domain.ParseBoundingBox(sharedcfg.EnvOrDefault("FIRMS_BBOX", "-64.9,-22.5,-57.0,-16.0"))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRMS_BBOX: %w", err)
	}

	sources, err := ParseSources(sharedcfg.EnvOrDefault("FIRMS_SOURCES", strings.Join(domain.DefaultSources, ",")))
	if err != nil {
		return nil, fmt.Errorf("invalid FIRMS_SOURCES: %w", err)
	}

	enabled, err := parseBool("FIRMS_ENABLED", true)
	if err != nil {
		return nil, err
	}
	discardStale, err := parseBool("FIRMS_DISCARD_STALE", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FIRMSMapKey:  os.Getenv("FIRMS_MAP_KEY"),
		FIRMSBaseURL: sharedcfg.EnvOrDefault("FIRMS_BASE_URL", domain.DefaultBaseURL),
		FetchTimeout: fetchTimeout,

		BoundingBox: bbox,
		Sources:     sources,
		Days:        domain.ParseDays(sharedcfg.EnvOrDefault("FIRMS_DAYS", strconv.Itoa(domain.DefaultDays))),
		Enabled:     enabled,

		RefreshInterval: refreshInterval,
		DiscardStale:    discardStale,
		ParamsFile:      os.Getenv("FIRMS_PARAMS_FILE"),

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLayerTopic: sharedcfg.EnvOrDefault("KAFKA_LAYER_TOPIC", "firms-detections"),
	}

	if cfg.ParamsFile != "" {
		if err := cfg.applyParamsFile(cfg.ParamsFile); err != nil {
			return nil, err
		}
	}

	if cfg.FIRMSMapKey == "" {
		return nil, errors.New("FIRMS_MAP_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaLayerTopic == "" {
		return nil, errors.New("KAFKA_LAYER_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

// ParseSources splits a comma-separated list of FIRMS source ids, dropping
// blanks and repeats. Unknown ids are an error.
func ParseSources(s string) ([]string, error) {
	return domain.NormalizeSources(strings.Split(s, ","))
}

func (c *Config) applyParamsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read FIRMS_PARAMS_FILE: %w", err)
	}

	var pf paramsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse FIRMS_PARAMS_FILE: %w", err)
	}

	if pf.Sources != nil {
		sources, err := domain.NormalizeSources(*pf.Sources)
		if err != nil {
			return fmt.Errorf("FIRMS_PARAMS_FILE sources: %w", err)
		}
		c.Sources = sources
	}
	if pf.Days != nil {
		c.Days = domain.ClampDays(*pf.Days)
	}
	if pf.Enabled != nil {
		c.Enabled = *pf.Enabled
	}
	if pf.BBox != nil {
		bbox, err := domain.NewBoundingBox(pf.BBox)
		if err != nil {
			return fmt.Errorf("FIRMS_PARAMS_FILE bbox: %w", err)
		}
		c.BoundingBox = bbox
	}
	return nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
