package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/okian/floorwatch/internal/adapters/mq/queue"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/pkg/logger"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// MQTTConfig selects the broker and topic filter cameras publish on.
type MQTTConfig struct {
	Broker   string // e.g. tcp://mosquitto:1883
	Topic    string // e.g. floor/+/events
	ClientID string // random when empty
}

// MQTTSource subscribes to camera topics. Messages arriving while the queue
// is full are dropped and counted.
type MQTTSource struct {
	client mqtt.Client
	cfg    MQTTConfig
	sink   Sink
	opts   options
	ctx    context.Context
}

// NewMQTTSource prepares a client for cfg. Nothing connects until Start.
func NewMQTTSource(cfg MQTTConfig, sink Sink, opts ...Option) (*MQTTSource, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, errors.New("mqtt: broker and topic are required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "floorwatch-" + uuid.NewString()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named("mqtt")
	s := &MQTTSource{cfg: cfg, sink: sink, opts: o, ctx: context.Background()}

	copts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(o.maxBackoff).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			o.logger.Warn(s.ctx, "connection lost", logger.Error(err))
		})
	s.client = mqtt.NewClient(copts)
	return s, nil
}

// Start connects and subscribes. Subscriptions are renewed on reconnect.
func (s *MQTTSource) Start(ctx context.Context) error {
	s.ctx = ctx
	tok := s.client.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("mqtt: connect to %s timed out", s.cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: connect to %s: %w", s.cfg.Broker, err)
	}
	return nil
}

func (s *MQTTSource) onConnect(c mqtt.Client) {
	tok := c.Subscribe(s.cfg.Topic, mqttQoS, s.onMessage)
	if tok.Wait() && tok.Error() != nil {
		s.opts.logger.Error(s.ctx, "subscribe failed", logger.String("topic", s.cfg.Topic), logger.Error(tok.Error()))
		return
	}
	s.opts.logger.Info(s.ctx, "subscribed", logger.String("topic", s.cfg.Topic), logger.String("client_id", s.cfg.ClientID))
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := s.handle(s.ctx, msg.Topic(), msg.Payload()); err != nil {
		s.opts.logger.Warn(s.ctx, "message dropped", logger.String("topic", msg.Topic()), logger.Error(err))
	}
}

func (s *MQTTSource) handle(ctx context.Context, topic string, payload []byte) error {
	ev, err := decode(ingest.SourceMQTT, payload)
	if err != nil {
		return err
	}
	if err := s.sink.Enqueue(ctx, queue.Item{Event: ev, Source: ingest.SourceMQTT, Received: time.Now()}); err != nil {
		return fmt.Errorf("enqueue %s from %s: %w", ev.Label(), topic, err)
	}
	return nil
}

// Stop disconnects, letting in-flight handlers finish.
func (s *MQTTSource) Stop() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	}
	s.client.Disconnect(mqttQuiesceMillis)
}
