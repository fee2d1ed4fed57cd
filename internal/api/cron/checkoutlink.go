package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/service"
)

// CheckoutLinkHandler handles checkout link related cron jobs
type CheckoutLinkHandler struct {
	checkoutLinkService service.CheckoutLinkService
	logger              *logger.Logger
}

// NewCheckoutLinkHandler creates a new checkout link cron handler
func NewCheckoutLinkHandler(
	checkoutLinkService service.CheckoutLinkService,
	logger *logger.Logger,
) *CheckoutLinkHandler {
	return &CheckoutLinkHandler{
		checkoutLinkService: checkoutLinkService,
		logger:              logger,
	}
}

// SweepExpiredLinks transitions overdue active links to expired. The sweep
// also runs on an internal ticker, this endpoint exists for external cron
// schedulers and manual triggers.
func (h *CheckoutLinkHandler) SweepExpiredLinks(c *gin.Context) {
	ctx := c.Request.Context()

	response, err := h.checkoutLinkService.SweepExpired(ctx)
	if err != nil {
		h.logger.Errorw("failed to sweep expired checkout links",
			"error", err)

		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
