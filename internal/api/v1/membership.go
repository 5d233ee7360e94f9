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

type MembershipHandler struct {
	service service.MembershipService
	log     *logger.Logger
}

func NewMembershipHandler(service service.MembershipService, log *logger.Logger) *MembershipHandler {
	return &MembershipHandler{service: service, log: log}
}

// @Summary Purchase a membership
// @Description Creates an ACTIVE membership and a PENDING payment, and opens a checkout session for it
// @Tags Memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param membership body dto.PurchaseMembershipRequest true "Plan to purchase"
// @Success 201 {object} dto.PurchaseMembershipResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /memberships [post]
func (h *MembershipHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Purchase(c.Request.Context(), types.GetUserID(c.Request.Context()), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a membership
// @Tags Memberships
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Success 200 {object} dto.MembershipResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /memberships/{id} [get]
func (h *MembershipHandler) GetMembership(c *gin.Context) {
	resp, err := h.service.GetMembership(c.Request.Context(), types.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Freeze a membership
// @Description Pauses an ACTIVE membership and pushes its end date by the frozen span
// @Tags Memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Param freeze body dto.FreezeMembershipRequest true "Freeze window (YYYY-MM-DD)"
// @Success 200 {object} dto.MembershipResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /memberships/{id}/freeze [post]
func (h *MembershipHandler) Freeze(c *gin.Context) {
	var req dto.FreezeMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Freeze(c.Request.Context(), types.GetUserID(c.Request.Context()), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Resume a frozen membership
// @Tags Memberships
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Success 200 {object} dto.MembershipResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /memberships/{id}/resume [post]
func (h *MembershipHandler) Resume(c *gin.Context) {
	resp, err := h.service.Resume(c.Request.Context(), types.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Upgrade a membership
// @Description Switches an ACTIVE membership to a more expensive plan and charges the prorated difference
// @Tags Memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Param upgrade body dto.UpgradeMembershipRequest false "Target plan, may also be given as ?plan_id="
// @Success 200 {object} dto.UpgradeMembershipResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /memberships/{id}/upgrade [post]
func (h *MembershipHandler) Upgrade(c *gin.Context) {
	var req dto.UpgradeMembershipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if req.PlanID == "" {
		req.PlanID = c.Query("plan_id")
	}

	resp, err := h.service.Upgrade(c.Request.Context(), types.GetUserID(c.Request.Context()), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
