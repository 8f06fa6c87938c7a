package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/notify"
)

// outcomeMessage is the wire document published after a finished broadcast.
type outcomeMessage struct {
	OrderID   uint                   `json:"orderId"`
	Outcome   notify.DispatchOutcome `json:"outcome"`
	Timestamp time.Time              `json:"timestamp"`
}

// Announcer publishes broadcast outcomes to the ops topic. It implements
// the broadcaster's outcome publisher; a closed or disconnected client
// surfaces as an error that the broadcaster logs and absorbs.
type Announcer struct {
	client Client
	topic  string
}

// NewAnnouncer wraps an MQTT client with the outcome publishing topic.
func NewAnnouncer(client Client, baseTopic string) *Announcer {
	topic := strings.TrimSuffix(baseTopic, "/") + "/broadcasts"
	return &Announcer{client: client, topic: topic}
}

// PublishOutcome publishes one broadcast outcome as JSON.
func (a *Announcer) PublishOutcome(ctx context.Context, orderID uint, outcome notify.DispatchOutcome) error {
	msg := outcomeMessage{
		OrderID:   orderID,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("order_id", orderID).
			Build()
	}
	return a.client.Publish(ctx, a.topic, string(data))
}
