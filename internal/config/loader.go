package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FLOORWATCH_"
	envFile    = "FLOORWATCH_ENV_FILE"
	configFile = "FLOORWATCH_CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. a .env file, or FLOORWATCH_ENV_FILE, if present; it never overrides
//     variables already set in the environment
//  3. YAML file if FLOORWATCH_CONFIG is set
//  4. env (prefix FLOORWATCH_)
func Load(_ context.Context) (*Config, error) {
	dotenv := os.Getenv(envFile)
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, dotenv, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(configFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// FLOORWATCH_QUEUE_SIZE -> queue_size. Keys are flat so underscores stay.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.StoreDriver != DriverSQLite && c.StoreDriver != DriverMemory:
		return invalid("store_driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.StoreDriver)
	case c.StoreDriver == DriverSQLite && strings.TrimSpace(c.DatabasePath) == "":
		return invalid("database_path must not be empty for the sqlite driver")
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return invalid("min_confidence must be within [0, 1]")
	case c.DriftSampleSize <= 0:
		return invalid("drift_sample_size must be positive")
	case c.DriftWarningBelow > c.DriftCautionBelow:
		return invalid("drift_warning_below must not exceed drift_caution_below")
	case c.HeatmapWindowHours <= 0:
		return invalid("heatmap_window_hours must be positive")
	case c.MetricsQueryLimit < 0:
		return invalid("metrics_query_limit must not be negative")
	case c.EventsDefaultLimit <= 0 || c.EventsMaxLimit < c.EventsDefaultLimit:
		return invalid("events_default_limit must be positive and at most events_max_limit")
	case c.RateLimitPerMinute <= 0 || c.BatchRateLimitPerMinute <= 0:
		return invalid("rate limits must be positive")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive")
	case len(c.Brokers()) > 0 && (c.KafkaTopic == "" || c.KafkaGroupID == ""):
		return invalid("kafka_topic and kafka_group_id are required with kafka_brokers")
	case c.MQTTBroker != "" && c.MQTTTopic == "":
		return invalid("mqtt_topic is required with mqtt_broker")
	case !metricNamePart.MatchString(c.MetricsNamespace):
		return invalid("metrics_namespace %q is not a valid metric name prefix", c.MetricsNamespace)
	case c.MetricsSubsystem != "" && !metricNamePart.MatchString(c.MetricsSubsystem):
		return invalid("metrics_subsystem %q is not a valid metric name part", c.MetricsSubsystem)
	}
	_, err := c.LatencyBuckets()
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
