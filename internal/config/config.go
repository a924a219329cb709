// Package config defines service configuration and how it is loaded.
package config

import (
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Environment is reported by the info and health endpoints.
	Environment string `koanf:"environment"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// StoreDriver selects sqlite or memory.
	StoreDriver string `koanf:"store_driver"`

	// DatabasePath is the SQLite file.
	DatabasePath string `koanf:"database_path"`

	// MinConfidence rejects events scored below it.
	MinConfidence float64 `koanf:"min_confidence"`

	// Drift thresholds for the model health report.
	DriftSampleSize   int     `koanf:"drift_sample_size"`
	DriftWarningBelow float64 `koanf:"drift_warning_below"`
	DriftCautionBelow float64 `koanf:"drift_caution_below"`

	// Heatmap look-back and the peak threshold in percent.
	HeatmapWindowHours int     `koanf:"heatmap_window_hours"`
	HeatmapPeakAbove   float64 `koanf:"heatmap_peak_above"`

	// MetricsQueryLimit caps events read per metrics report; 0 is unlimited.
	MetricsQueryLimit int `koanf:"metrics_query_limit"`

	// EventsDefaultLimit and EventsMaxLimit bound GET /api/events?limit.
	EventsDefaultLimit int `koanf:"events_default_limit"`
	EventsMaxLimit     int `koanf:"events_max_limit"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`

	// Per client IP request budgets for single and batch ingestion.
	RateLimitPerMinute      int `koanf:"rate_limit_per_minute"`
	BatchRateLimitPerMinute int `koanf:"batch_rate_limit_per_minute"`

	// TrustProxyHeaders keys rate limits on X-Forwarded-For and friends
	// instead of the peer address. Off unless a proxy sets them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// QueueSize bounds the stream ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of stream ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// Kafka source; disabled when no brokers are set. Brokers are comma separated.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
	KafkaGroupID string `koanf:"kafka_group_id"`

	// MQTT source; disabled when no broker is set.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTClientID string `koanf:"mqtt_client_id"`

	// SeedOnStart loads the roster and a day of sample events at startup.
	SeedOnStart bool `koanf:"seed_on_start"`

	// Prometheus metric naming. Every metric also carries an environment label.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBuckets overrides the latency histogram buckets in
	// milliseconds, comma separated and increasing.
	MetricsLatencyBuckets string `koanf:"metrics_latency_buckets"`

	// OTelEndpoint enables OTLP/HTTP trace export, e.g. "localhost:4318".
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Environment:             "development",
		Addr:                    ":8000",
		StoreDriver:             DriverSQLite,
		DatabasePath:            "floorwatch.db",
		MinConfidence:           0.7,
		DriftSampleSize:         100,
		DriftWarningBelow:       0.75,
		DriftCautionBelow:       0.85,
		HeatmapWindowHours:      24,
		HeatmapPeakAbove:        80,
		MetricsQueryLimit:       10_000,
		EventsDefaultLimit:      1000,
		EventsMaxLimit:          10_000,
		CORSOrigins:             "*",
		RateLimitPerMinute:      100,
		BatchRateLimitPerMinute: 20,
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		KafkaTopic:              "floor.events",
		KafkaGroupID:            "floorwatch",
		MQTTTopic:               "floor/+/events",
		MetricsNamespace:        "floorwatch",
	}
}

// Brokers splits KafkaBrokers.
func (c *Config) Brokers() []string { return splitList(c.KafkaBrokers) }

// Origins splits CORSOrigins.
func (c *Config) Origins() []string { return splitList(c.CORSOrigins) }

var metricNamePart = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LatencyBuckets parses MetricsLatencyBuckets. Nil means the built-in buckets.
func (c *Config) LatencyBuckets() ([]float64, error) {
	parts := splitList(c.MetricsLatencyBuckets)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, invalid("metrics_latency_buckets: %v", err)
		}
		if i > 0 && v <= out[i-1] {
			return nil, invalid("metrics_latency_buckets must be increasing")
		}
		out[i] = v
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
