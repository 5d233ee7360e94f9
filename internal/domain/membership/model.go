package membership

import (
	"time"

	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Membership is a user's entitlement to a plan for a date range.
// StartDate, EndDate and the frozen dates are calendar dates (midnight UTC).
type Membership struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	PlanID          string                 `json:"plan_id"`
	StartDate       time.Time              `json:"start_date"`
	EndDate         time.Time              `json:"end_date"`
	Status          types.MembershipStatus `json:"status"`
	AutoRenew       bool                   `json:"auto_renew"`
	PriceAtPurchase decimal.Decimal        `json:"price_at_purchase" swaggertype:"string"`
	FrozenFrom      *time.Time             `json:"frozen_from,omitempty"`
	FrozenTo        *time.Time             `json:"frozen_to,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// New starts a membership on p from today
func New(userID string, p *plan.Plan, today time.Time, autoRenew bool) *Membership {
	return &Membership{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MEMBERSHIP),
		UserID:          userID,
		PlanID:          p.ID,
		StartDate:       today,
		EndDate:         types.AddDays(today, p.DurationDays),
		Status:          types.MembershipStatusActive,
		AutoRenew:       autoRenew,
		PriceAtPurchase: p.Price,
	}
}

// RemainingDays is the number of days left before the end date, never negative
func (m *Membership) RemainingDays(today time.Time) int {
	return max(0, types.DaysBetween(today, m.EndDate))
}

// Freeze pauses the membership from..to and pushes the end date by the frozen span
func (m *Membership) Freeze(from, to, today time.Time) error {
	if m.Status != types.MembershipStatusActive {
		return ierr.NewErrorf("cannot freeze a %s membership", m.Status).
			WithHint("Only active memberships can be frozen").
			WithReportableDetails(map[string]any{
				"membership_id": m.ID,
				"status":        m.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}
	if !from.Before(to) {
		return ierr.NewError("freeze start must be before freeze end").
			WithHint("Frozen from date must be before frozen to date").
			WithReportableDetails(map[string]any{
				"frozen_from": types.FormatDate(from),
				"frozen_to":   types.FormatDate(to),
			}).
			Mark(ierr.ErrValidation)
	}
	if from.Before(today) {
		return ierr.NewError("freeze cannot start in the past").
			WithHint("Frozen from date cannot be in the past").
			WithReportableDetails(map[string]any{
				"frozen_from": types.FormatDate(from),
				"today":       types.FormatDate(today),
			}).
			Mark(ierr.ErrValidation)
	}

	m.Status = types.MembershipStatusFrozen
	m.FrozenFrom = &from
	m.FrozenTo = &to
	m.EndDate = types.AddDays(m.EndDate, types.DaysBetween(from, to))
	return nil
}

// Resume reactivates a frozen membership. The end date keeps the freeze extension.
func (m *Membership) Resume() error {
	if m.Status != types.MembershipStatusFrozen {
		return ierr.NewErrorf("cannot resume a %s membership", m.Status).
			WithHint("Only frozen memberships can be resumed").
			WithReportableDetails(map[string]any{
				"membership_id": m.ID,
				"status":        m.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	m.Status = types.MembershipStatusActive
	m.FrozenFrom = nil
	m.FrozenTo = nil
	return nil
}

// CanUpgrade reports whether the membership is in a state that allows a plan change
func (m *Membership) CanUpgrade() error {
	if m.Status != types.MembershipStatusActive {
		return ierr.NewErrorf("cannot upgrade a %s membership", m.Status).
			WithHint("Only active memberships can be upgraded").
			WithReportableDetails(map[string]any{
				"membership_id": m.ID,
				"status":        m.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}
	return nil
}

// ApplyUpgrade switches to newPlan. The period is recomputed from the original start date.
func (m *Membership) ApplyUpgrade(newPlan *plan.Plan) {
	m.PlanID = newPlan.ID
	m.PriceAtPurchase = newPlan.Price
	m.EndDate = types.AddDays(m.StartDate, newPlan.DurationDays)
}

// Expire marks the membership expired and drops any freeze window
func (m *Membership) Expire() {
	m.Status = types.MembershipStatusExpired
	m.FrozenFrom = nil
	m.FrozenTo = nil
}
