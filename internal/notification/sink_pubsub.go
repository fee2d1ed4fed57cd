package notification

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/menumate/menumate/internal/config"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/pubsub"
	"github.com/menumate/menumate/internal/types"
)

// PubSubSink hands lifecycle events to the notification topic. The delivery
// handler consumes the topic and pushes to the configured endpoint, so emitters
// never block on outbound HTTP.
type PubSubSink struct {
	pubSub pubsub.Publisher
	config *config.WebhookConfig
	logger *logger.Logger
}

// NewPubSubSink creates a topic-backed sink
func NewPubSubSink(pubSub pubsub.Publisher, cfg *config.Configuration, logger *logger.Logger) *PubSubSink {
	return &PubSubSink{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}
}

func (s *PubSubSink) Name() string {
	return "pubsub"
}

func (s *PubSubSink) Deliver(ctx context.Context, event *types.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode notification event").
			Mark(ierr.ErrSystem)
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", event.EventName)

	return s.pubSub.Publish(ctx, s.config.Topic, msg)
}
