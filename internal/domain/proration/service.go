// Package proration prices a plan change against the unused part of the current membership.
package proration

import (
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Calculator prices a plan change. Implementations must be pure: same inputs, same result.
type Calculator interface {
	// ComputeUpgradeCost returns what the user owes to move to NewPlan today.
	// Without a current ACTIVE membership it is a full purchase of NewPlan.
	ComputeUpgradeCost(params UpgradeParams) (*Result, error)
}

type UpgradeParams struct {
	// Current is the user's membership, nil when the user has none
	Current *membership.Membership
	// CurrentPlan is the plan of Current, required when Current is set
	CurrentPlan *plan.Plan
	NewPlan     *plan.Plan
	Today       time.Time
}

type Result struct {
	Amount        decimal.Decimal
	Type          types.PaymentType
	Credit        decimal.Decimal
	RemainingDays int
	// TierMismatch is set when the new plan costs more but sits on a lower tier
	TierMismatch bool
}

type calculator struct{}

func NewCalculator() Calculator {
	return &calculator{}
}

func (c *calculator) ComputeUpgradeCost(params UpgradeParams) (*Result, error) {
	if params.NewPlan == nil {
		return nil, ierr.NewError("new plan is required").
			WithHint("A target plan is required").
			Mark(ierr.ErrValidation)
	}

	if params.Current == nil || params.Current.Status != types.MembershipStatusActive {
		return &Result{
			Amount: types.RoundMoney(params.NewPlan.Price),
			Type:   types.PaymentTypeMembershipPurchase,
			Credit: decimal.Zero,
		}, nil
	}

	current := params.CurrentPlan
	if current == nil || current.ID != params.Current.PlanID {
		return nil, ierr.NewError("current plan does not match membership").
			WithHint("Current plan is required to price an upgrade").
			WithReportableDetails(map[string]any{
				"membership_id": params.Current.ID,
				"plan_id":       params.Current.PlanID,
			}).
			Mark(ierr.ErrValidation)
	}

	// price is authoritative for what counts as an upgrade, tier is informational
	if !params.NewPlan.Price.GreaterThan(current.Price) {
		return nil, ierr.NewError("new plan must cost more than the current plan").
			WithHint("Upgrade must be to a more expensive plan").
			WithReportableDetails(map[string]any{
				"current_plan_id":    current.ID,
				"current_plan_price": current.Price.String(),
				"new_plan_id":        params.NewPlan.ID,
				"new_plan_price":     params.NewPlan.Price.String(),
			}).
			Mark(ierr.ErrInvalidUpgrade)
	}

	remaining := params.Current.RemainingDays(params.Today)

	// price * remaining / duration keeps full precision until the final rounding
	credit := types.RoundMoney(
		current.Price.
			Mul(decimal.NewFromInt(int64(remaining))).
			Div(decimal.NewFromInt(int64(current.DurationDays))),
	)

	amount := params.NewPlan.Price.Sub(credit)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return &Result{
		Amount:        types.RoundMoney(amount),
		Type:          types.PaymentTypeUpgradeFee,
		Credit:        credit,
		RemainingDays: remaining,
		TierMismatch:  params.NewPlan.Tier.Rank() < current.Tier.Rank(),
	}, nil
}
