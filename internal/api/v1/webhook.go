package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/integration/hubspot"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/service"
)

// HubSpot v3 signature headers
const (
	headerSignature = "X-HubSpot-Signature-v3"
	headerTimestamp = "X-HubSpot-Request-Timestamp"
)

type WebhookHandler struct {
	verifier   *hubspot.SignatureVerifier
	reconciler service.WebhookReconciler
	log        *logger.Logger
}

func NewWebhookHandler(
	verifier *hubspot.SignatureVerifier,
	reconciler service.WebhookReconciler,
	log *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
		log:        log,
	}
}

// HandleCRMWebhook is the CRM ingress. Signature verification gates
// everything, but once verified the response is 200 regardless of processing
// outcome. The sender's redelivery retries events left unprocessed, a non-200
// would only make it redeliver events we already handled.
func (h *WebhookHandler) HandleCRMWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	// The sender signs the full request URL including the scheme. Webhook
	// endpoints are registered over https, so reconstruct the URL that way.
	if err := h.verifier.Verify(
		c.Request.Method,
		"https://"+c.Request.Host+c.Request.RequestURI,
		body,
		c.GetHeader(headerSignature),
		c.GetHeader(headerTimestamp),
	); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	events, err := hubspot.ParseDealEvents(body)
	if err != nil {
		// Verified but malformed, a retry can never succeed
		h.log.Errorw("failed to parse CRM webhook batch", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": 0})
		return
	}

	processed := 0
	for i := range events {
		event := &events[i]
		if err := h.reconciler.Handle(c.Request.Context(), event); err != nil {
			h.log.Errorw("CRM event processing failed, awaiting redelivery",
				"error", err,
				"event_id", event.EventKey())
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  len(events),
		"processed": processed,
	})
}
