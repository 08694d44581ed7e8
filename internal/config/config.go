// Package config reads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const monthLayout = "2006-01"

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Source selection.
	BaseURL  string
	CacheDir string
	States   []string
	Start    time.Time
	End      time.Time

	// Reference tables.
	StackReferencePath string
	OffsetTablePath    string

	SourceEncoding string
	FetchEnabled   bool
	FetchTimeout   time.Duration
	FetchCacheSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka sink.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "60s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	startStr := os.Getenv("CEMS_START")
	if startStr == "" {
		return nil, errors.New("CEMS_START is required")
	}
	start, err := time.Parse(monthLayout, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CEMS_START %q: want YYYY-MM", startStr)
	}
	endStr := sharedcfg.EnvOrDefault("CEMS_END", startStr)
	end, err := time.Parse(monthLayout, endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CEMS_END %q: want YYYY-MM", endStr)
	}
	if end.Before(start) {
		return nil, errors.New("CEMS_END is before CEMS_START")
	}

	cfg := &Config{
		BaseURL:  sharedcfg.EnvOrDefault("CEMS_BASE_URL", "https://gaftp.epa.gov/DMDnLoad/emissions/"),
		CacheDir: sharedcfg.EnvOrDefault("CEMS_CACHE_DIR", "."),
		States:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CEMS_STATES", "md")),
		Start:    start,
		End:      end,

		StackReferencePath: os.Getenv("STACK_REFERENCE_PATH"),
		OffsetTablePath:    sharedcfg.EnvOrDefault("OFFSET_TABLE_PATH", "data/cemsinfo.csv"),

		SourceEncoding: strings.ToLower(sharedcfg.EnvOrDefault("SOURCE_ENCODING", "utf-8")),
		FetchEnabled:   sharedcfg.EnvOrDefault("FETCH_ENABLED", "true") == "true",
		FetchTimeout:   fetchTimeout,
		FetchCacheSize: parseFetchCacheSize(),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "cems-emissions"),
	}

	if len(cfg.States) == 0 {
		return nil, errors.New("CEMS_STATES is required")
	}
	for _, st := range cfg.States {
		if len(st) != 2 {
			return nil, fmt.Errorf("invalid state %q in CEMS_STATES: want a two-letter code", st)
		}
	}
	switch cfg.SourceEncoding {
	case "utf-8", "latin1":
	default:
		return nil, fmt.Errorf("invalid SOURCE_ENCODING %q: want utf-8 or latin1", cfg.SourceEncoding)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseFetchCacheSize() int {
	if s := os.Getenv("FETCH_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 16
}
