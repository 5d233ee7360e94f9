package cron

import (
	"net/http"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/service"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
)

// MembershipCronHandler runs the daily membership sweeps on behalf of the external scheduler
type MembershipCronHandler struct {
	sweepService service.SweepService
	config       *config.Configuration
	logger       *logger.Logger
}

func NewMembershipCronHandler(
	sweepService service.SweepService,
	config *config.Configuration,
	logger *logger.Logger,
) *MembershipCronHandler {
	return &MembershipCronHandler{
		sweepService: sweepService,
		config:       config,
		logger:       logger,
	}
}

// ExpireMemberships expires live memberships whose end date has passed
func (h *MembershipCronHandler) ExpireMemberships(c *gin.Context) {
	req, ok := bindSweepRequest(c)
	if !ok {
		return
	}

	date, err := req.GetDate(h.sweepService.Today())
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("starting membership expiry cron job", "date", types.FormatDate(date))
	resp, err := h.sweepService.SweepExpire(c.Request.Context(), date)
	if err != nil {
		h.logger.Errorw("failed to expire memberships", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RemindMemberships notifies members whose membership ends in days_before days
func (h *MembershipCronHandler) RemindMemberships(c *gin.Context) {
	req, ok := bindSweepRequest(c)
	if !ok {
		return
	}

	date, err := req.GetDate(h.sweepService.Today())
	if err != nil {
		c.Error(err)
		return
	}
	daysBefore, err := req.GetDaysBefore(h.config.Billing.ReminderDaysBefore)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("starting membership reminder cron job", "date", types.FormatDate(date), "days_before", daysBefore)
	resp, err := h.sweepService.SweepRemind(c.Request.Context(), date, daysBefore)
	if err != nil {
		h.logger.Errorw("failed to send membership reminders", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AutoRenewMemberships renews expired memberships that have auto renew on
func (h *MembershipCronHandler) AutoRenewMemberships(c *gin.Context) {
	req, ok := bindSweepRequest(c)
	if !ok {
		return
	}

	date, err := req.GetDate(h.sweepService.Today())
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("starting membership auto renew cron job", "date", types.FormatDate(date))
	resp, err := h.sweepService.SweepAutoRenew(c.Request.Context(), date)
	if err != nil {
		h.logger.Errorw("failed to auto renew memberships", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindSweepRequest reads the optional JSON body. An empty body means defaults.
func bindSweepRequest(c *gin.Context) (*dto.SweepRequest, bool) {
	var req dto.SweepRequest
	if c.Request.ContentLength == 0 {
		return &req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return nil, false
	}
	return &req, true
}
