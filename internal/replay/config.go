// Package replay generates a realistic event stream and plays it against a
// running service, either as HTTP batches checked for idempotency or as MQTT
// messages the way edge cameras publish them.
package replay

import (
	"time"

	"github.com/okian/floorwatch/internal/ingest"
)

// Modes.
const (
	ModeHTTP = ingest.SourceHTTP
	ModeMQTT = ingest.SourceMQTT
)

// Config holds configuration for a replay run.
type Config struct {
	Mode      string        // http or mqtt
	BaseURL   string        // Base URL of the service
	Broker    string        // MQTT broker, e.g. tcp://localhost:1883
	Topic     string        // MQTT topic; "+" is replaced by the workstation id
	Hours     int           // Hours of activity to generate
	BatchSize int           // Events per batch request
	Workers   int           // Concurrent batch requests
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Generator seed; 0 picks one from the clock
	Verbose   bool          // Log every batch
}

// Stats counts one pass over the generated events.
type Stats struct {
	Submitted  int
	Successful int
	Duplicate  int
	Failed     int
	Errors     []string
	Duration   time.Duration
}

// Report is the outcome of a run.
type Report struct {
	RunID     string
	Generated int
	First     Stats
	Second    Stats
}
