package dto

import (
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/fitclub/billing/internal/validator"
	"github.com/shopspring/decimal"
)

type PurchaseMembershipRequest struct {
	PlanID    string `json:"plan_id" validate:"required"`
	AutoRenew bool   `json:"auto_renew"`
}

func (r *PurchaseMembershipRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type PurchaseMembershipResponse struct {
	Membership  *MembershipResponse `json:"membership"`
	PaymentID   string              `json:"payment_id"`
	CheckoutURL string              `json:"checkout_url,omitempty"`
}

// FreezeMembershipRequest carries calendar dates as YYYY-MM-DD
type FreezeMembershipRequest struct {
	FrozenFrom string `json:"frozen_from" validate:"required"`
	FrozenTo   string `json:"frozen_to" validate:"required"`
}

func (r *FreezeMembershipRequest) Validate() error {
	_, _, err := r.Dates()
	return err
}

// Dates parses and validates the freeze window
func (r *FreezeMembershipRequest) Dates() (time.Time, time.Time, error) {
	if err := validator.ValidateRequest(r); err != nil {
		return time.Time{}, time.Time{}, err
	}

	from, err := types.ParseDate(r.FrozenFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := types.ParseDate(r.FrozenTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, ierr.NewError("frozen_from must be before frozen_to").
			WithHint("Frozen from date must be before frozen to date").
			WithReportableDetails(map[string]any{
				"frozen_from": r.FrozenFrom,
				"frozen_to":   r.FrozenTo,
			}).
			Mark(ierr.ErrValidation)
	}
	return from, to, nil
}

type UpgradeMembershipRequest struct {
	PlanID string `json:"plan_id" form:"plan_id" validate:"required"`
}

func (r *UpgradeMembershipRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type UpgradeMembershipResponse struct {
	Membership    *MembershipResponse `json:"membership"`
	PaymentID     string              `json:"payment_id"`
	PaymentStatus types.PaymentStatus `json:"payment_status"`
	Amount        decimal.Decimal     `json:"amount" swaggertype:"string"`
	Credit        decimal.Decimal     `json:"credit" swaggertype:"string"`
	CheckoutURL   string              `json:"checkout_url,omitempty"`
}

type MembershipResponse struct {
	*membership.Membership
	Plan *plan.Plan `json:"plan,omitempty"`
}
