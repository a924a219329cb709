package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/pkg/logger"
)

const (
	publishQoS     = 1
	publishTimeout = 10 * time.Second
)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

func dialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(publishTimeout)
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("%w: connect to %s timed out", ErrSubmit, broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	return client, nil
}

// topicFor fills the single-level wildcard with the workstation id, so
// "floor/+/events" becomes "floor/S1/events".
func topicFor(pattern, stationID string) string {
	return strings.Replace(pattern, "+", stationID, 1)
}

// publishEvents sends each event as its own message, as a camera would.
func publishEvents(ctx context.Context, p publisher, topic string, events []types.EventRequest) Stats {
	start := time.Now()
	var stats Stats
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		stats.Submitted++
		tok := p.Publish(topicFor(topic, ev.WorkstationID), publishQoS, false, payload)
		if !tok.WaitTimeout(publishTimeout) {
			stats.Failed++
			stats.Errors = append(stats.Errors, "publish timed out")
			continue
		}
		if err := tok.Error(); err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, err.Error())
			continue
		}
		stats.Successful++
	}
	stats.Duration = time.Since(start)
	logger.Get().Info(ctx, "mqtt publish completed",
		logger.Int("published", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Duration("took", stats.Duration),
	)
	return stats
}
