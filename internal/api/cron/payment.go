package cron

import (
	"net/http"

	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/service"
	"github.com/gin-gonic/gin"
)

// PaymentCronHandler handles payment related cron jobs
type PaymentCronHandler struct {
	sweepService service.SweepService
	logger       *logger.Logger
}

func NewPaymentCronHandler(sweepService service.SweepService, logger *logger.Logger) *PaymentCronHandler {
	return &PaymentCronHandler{
		sweepService: sweepService,
		logger:       logger,
	}
}

// ExpireStaleSessions expires PENDING payments whose checkout session outlived the session TTL
func (h *PaymentCronHandler) ExpireStaleSessions(c *gin.Context) {
	h.logger.Infow("starting stale checkout session cron job")

	resp, err := h.sweepService.SweepExpireStaleSessions(c.Request.Context(), h.sweepService.Now())
	if err != nil {
		h.logger.Errorw("failed to expire stale checkout sessions", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
