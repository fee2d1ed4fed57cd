package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/menumate/menumate/internal/config"
	"github.com/menumate/menumate/internal/httpclient"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/pubsub"
	pubsubRouter "github.com/menumate/menumate/internal/pubsub/router"
	"github.com/menumate/menumate/internal/types"
)

// Handler interface for processing notification events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

// handler consumes the notification topic and delivers events to the
// configured endpoint
type handler struct {
	pubSub pubsub.Subscriber
	config *config.WebhookConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewHandler creates a new notification delivery handler
func NewHandler(
	pubSub pubsub.Subscriber,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub: pubSub,
		config: &cfg.Webhook,
		client: client,
		logger: logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"notification_delivery",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage delivers a single notification event
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var event types.NotificationEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal notification event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		// Malformed payloads can never succeed, drop without retry
		return nil
	}

	ctx = context.WithValue(ctx, types.CtxTenantID, event.TenantID)

	if !h.config.Enabled || h.config.Endpoint == "" {
		h.logger.Debugw("notification delivery disabled, dropping event",
			"event_id", event.ID,
			"event_name", event.EventName,
		)
		return nil
	}

	headers := make(map[string]string, len(h.config.Headers)+2)
	for k, v := range h.config.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	if h.config.SigningSecret != "" {
		headers["X-Menumate-Signature"] = h.sign(msg.Payload)
	}

	req := &httpclient.Request{
		Method:  "POST",
		URL:     h.config.Endpoint,
		Headers: headers,
		Body:    msg.Payload,
	}

	resp, err := h.client.Send(ctx, req)
	if err != nil {
		h.logger.Errorw("failed to deliver notification",
			"error", err,
			"message_uuid", msg.UUID,
			"event_id", event.ID,
			"event_name", event.EventName,
		)
		return err
	}

	h.logger.Infow("notification delivered",
		"message_uuid", msg.UUID,
		"event_id", event.ID,
		"event_name", event.EventName,
		"status_code", resp.StatusCode,
	)

	return nil
}

// sign computes the hex HMAC-SHA256 of the payload with the signing secret
func (h *handler) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(h.config.SigningSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
