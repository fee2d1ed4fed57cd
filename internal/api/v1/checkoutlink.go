package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/menumate/menumate/internal/api/dto"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/service"
)

type CheckoutLinkHandler struct {
	service service.CheckoutLinkService
	log     *logger.Logger
}

func NewCheckoutLinkHandler(service service.CheckoutLinkService, log *logger.Logger) *CheckoutLinkHandler {
	return &CheckoutLinkHandler{
		service: service,
		log:     log,
	}
}

// CreateCheckoutLink issues a checkout link. Returns 201 for a freshly minted
// link and 200 when an existing active link was returned instead.
func (h *CheckoutLinkHandler) CreateCheckoutLink(c *gin.Context) {
	var req dto.CreateCheckoutLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.IssueCheckoutLink(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if resp.Reused {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *CheckoutLinkHandler) GetCheckoutLink(c *gin.Context) {
	resp, err := h.service.GetCheckoutLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutLinkHandler) MarkUsed(c *gin.Context) {
	var req dto.MarkCheckoutLinkUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.MarkUsed(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutLinkHandler) ListCheckoutLinks(c *gin.Context) {
	restaurantID := c.Query("restaurant_id")

	resp, err := h.service.ListByRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
