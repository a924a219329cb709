// Package stream consumes events published by edge devices over Kafka and
// MQTT and hands them to the ingestion queue.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/floorwatch/internal/adapters/mq/queue"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
)

// ErrDecode marks a payload that is not a valid event document.
var ErrDecode = errors.New("undecodable event payload")

// Sink accepts decoded events.
type Sink interface {
	Enqueue(ctx context.Context, it queue.Item) error
}

// Decode parses one JSON event document.
func Decode(payload []byte) (model.Event, error) {
	var req types.EventRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	ev, err := req.ToEvent()
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ev, nil
}

// Option configures a source.
type Option func(*options)

type options struct {
	logger     logger.Logger
	maxBackoff time.Duration
}

func defaultOptions() options {
	return options{logger: logger.Nop(), maxBackoff: 10 * time.Second}
}

// WithLogger sets the source logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxBackoff caps the retry delay after broker errors.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxBackoff = d
		}
	}
}

// decode counts the message and parses it, counting failures by source.
func decode(source string, payload []byte) (model.Event, error) {
	metrics.RecordStreamMessage(source)
	ev, err := Decode(payload)
	if err != nil {
		metrics.RecordStreamDecodeError(source)
		return model.Event{}, err
	}
	return ev, nil
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur *= 2; cur > limit {
		return limit
	}
	return cur
}
