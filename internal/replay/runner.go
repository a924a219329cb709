package replay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/pkg/logger"
)

// Run generates the events and plays them in cfg.Mode.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	switch cfg.Mode {
	case ModeHTTP:
		return runHTTP(ctx, cfg, newHTTPClient(cfg.BaseURL, cfg.Timeout))
	case ModeMQTT:
		if cfg.Broker == "" || cfg.Topic == "" {
			return Report{}, fmt.Errorf("%w: mqtt needs a broker and a topic", ErrConfig)
		}
		rep, events, err := prepare(ctx, cfg)
		if err != nil {
			return rep, err
		}
		client, err := dialMQTT(cfg.Broker, "floorwatch-replay-"+rep.RunID)
		if err != nil {
			return rep, err
		}
		defer client.Disconnect(250)
		rep.First = publishEvents(ctx, client, cfg.Topic, events)
		return rep, nil
	default:
		return Report{}, fmt.Errorf("%w: unknown mode %q", ErrConfig, cfg.Mode)
	}
}

func prepare(ctx context.Context, cfg *Config) (Report, []types.EventRequest, error) {
	if cfg.Hours < 1 {
		return Report{}, nil, fmt.Errorf("%w: hours must be positive", ErrConfig)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	events, err := Generate(rand.New(rand.NewPCG(seed, 0x5eed)), time.Now(), cfg.Hours)
	if err != nil {
		return Report{}, nil, err
	}
	rep := Report{RunID: uuid.NewString(), Generated: len(events)}
	logger.Get().Info(ctx, "replay prepared",
		logger.String("run", rep.RunID),
		logger.String("mode", cfg.Mode),
		logger.Int("events", rep.Generated),
		logger.Int("hours", cfg.Hours),
	)
	return rep, events, nil
}

// runHTTP submits the events twice and verifies the second pass created nothing.
func runHTTP(ctx context.Context, cfg *Config, c *HTTPClient) (Report, error) {
	if err := c.Health(ctx); err != nil {
		return Report{}, fmt.Errorf("service health check failed: %w", err)
	}
	rep, events, err := prepare(ctx, cfg)
	if err != nil {
		return rep, err
	}

	log := logger.Get()
	rep.First = submitBatches(ctx, c, cfg, events)
	log.Info(ctx, "first pass completed",
		logger.Int("created", rep.First.Successful),
		logger.Int("duplicates", rep.First.Duplicate),
		logger.Int("failed", rep.First.Failed),
		logger.Duration("took", rep.First.Duration),
	)
	rep.Second = submitBatches(ctx, c, cfg, events)
	log.Info(ctx, "replay pass completed",
		logger.Int("created", rep.Second.Successful),
		logger.Int("duplicates", rep.Second.Duplicate),
		logger.Int("failed", rep.Second.Failed),
		logger.Duration("took", rep.Second.Duration),
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, Verify(rep.Generated, rep.First, rep.Second)
}
