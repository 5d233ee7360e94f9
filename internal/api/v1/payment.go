package v1

import (
	"net/http"

	"github.com/fitclub/billing/internal/api/dto"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/service"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// @Summary Initiate checkout for a plan
// @Description Prices the plan against the member's ACTIVE membership (prorated upgrade fee) or at full price,
// @Description and opens a checkout session. A session opened for the same plan within the dedup window is returned instead.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param checkout body dto.InitiateCheckoutRequest true "Plan to pay for"
// @Success 201 {object} dto.CheckoutResponse
// @Success 200 {object} dto.CheckoutResponse "Existing session reused"
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 429 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /payments/checkout [post]
func (h *PaymentHandler) InitiateCheckout(c *gin.Context) {
	var req dto.InitiateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.InitiateCheckout(c.Request.Context(), types.GetUserID(c.Request.Context()), req)
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

// @Summary Checkout success page
// @Description Reports the state of the payment behind a checkout session
// @Tags Payments
// @Produce json
// @Param session_id query string true "Checkout session ID"
// @Success 200 {object} dto.PaymentStatusResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /payments/success [get]
func (h *PaymentHandler) Success(c *gin.Context) {
	resp, err := h.service.GetBySession(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Checkout cancel page
// @Tags Payments
// @Produce json
// @Success 200 {object} map[string]string
// @Router /payments/cancel [get]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Payment was cancelled. You can start a new checkout at any time."})
}
