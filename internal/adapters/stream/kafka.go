package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/floorwatch/internal/adapters/mq/queue"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig selects the topic and consumer group.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource reads event documents from a consumer group. An offset is
// committed once its event is in the queue, or once it is known to be
// undecodable.
type KafkaSource struct {
	reader messageReader
	sink   Sink
	topic  string
	opts   options
}

// NewKafkaSource creates a consumer group reader for cfg.
func NewKafkaSource(cfg KafkaConfig, sink Sink, opts ...Option) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka: topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaSource(reader, cfg.Topic, sink, opts...), nil
}

func newKafkaSource(r messageReader, topic string, sink Sink, opts ...Option) *KafkaSource {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named("kafka")
	return &KafkaSource{reader: r, sink: sink, topic: topic, opts: o}
}

// Run consumes until ctx ends, then closes the reader.
func (s *KafkaSource) Run(ctx context.Context) error {
	log := s.opts.logger
	defer func() {
		if err := s.reader.Close(); err != nil {
			log.Error(ctx, "reader close failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "consumer started", logger.String("topic", s.topic))

	backoff := min(time.Second, s.opts.maxBackoff)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info(ctx, "consumer stopped")
				return nil
			}
			log.Error(ctx, "fetch failed", logger.Error(err), logger.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, s.opts.maxBackoff)
			continue
		}
		backoff = min(time.Second, s.opts.maxBackoff)

		if err := s.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn(ctx, "message dropped",
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.Error(err),
			)
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error(ctx, "commit failed", logger.Int64("offset", msg.Offset), logger.Error(err))
		}
	}
}

// handle decodes msg and waits for queue space, so a full queue slows the
// consumer down instead of losing messages.
func (s *KafkaSource) handle(ctx context.Context, msg kafka.Message) error {
	ev, err := decode(ingest.SourceKafka, msg.Value)
	if err != nil {
		return err
	}
	it := queue.Item{Event: ev, Source: ingest.SourceKafka, Received: time.Now()}
	wait := 10 * time.Millisecond
	for {
		err := s.sink.Enqueue(ctx, it)
		if !errors.Is(err, queue.ErrFull) {
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", ev.Label(), err)
			}
			return nil
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
		wait = nextBackoff(wait, time.Second)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
