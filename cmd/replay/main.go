package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/floorwatch/internal/replay"
	"github.com/okian/floorwatch/pkg/logger"
)

// Default configuration constants.
const (
	defaultHours     = 24
	defaultBatchSize = 500
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		mode      = flag.String("mode", replay.ModeHTTP, "Replay over http (batch, twice) or mqtt (publish once)")
		baseURL   = flag.String("url", "http://localhost:8000", "Base URL of the service")
		broker    = flag.String("broker", "tcp://localhost:1883", "MQTT broker")
		topic     = flag.String("topic", "floor/+/events", "MQTT topic; + is replaced by the workstation id")
		hours     = flag.Int("hours", defaultHours, "Hours of activity to generate")
		batchSize = flag.Int("batch", defaultBatchSize, "Events per batch request")
		workers   = flag.Int("workers", runtime.NumCPU(), "Concurrent batch requests")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", 0, "Generator seed; 0 picks one from the clock")
		verbose   = flag.Bool("verbose", false, "Log every batch")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	rep, err := replay.Run(ctx, &replay.Config{
		Mode:      *mode,
		BaseURL:   *baseURL,
		Broker:    *broker,
		Topic:     *topic,
		Hours:     *hours,
		BatchSize: *batchSize,
		Workers:   *workers,
		Timeout:   *timeout,
		Seed:      *seed,
		Verbose:   *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "replay failed", logger.String("run", rep.RunID), logger.Error(err))
		cancel()
		os.Exit(1)
	}
	logger.Get().Info(ctx, "replay succeeded",
		logger.String("run", rep.RunID),
		logger.Int("events", rep.Generated),
	)
}
