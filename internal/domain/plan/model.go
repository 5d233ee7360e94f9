package plan

import (
	"time"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable membership product. Plans are immutable once memberships reference them.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	Description  string          `json:"description,omitempty"`
	Tier         types.PlanTier  `json:"tier"`
	Price        decimal.Decimal `json:"price" swaggertype:"string"`
	DurationDays int             `json:"duration_days"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Tier.Validate(); err != nil {
		return err
	}
	if !p.Price.IsPositive() {
		return ierr.NewError("plan price must be positive").
			WithHint("Plan price must be greater than zero").
			WithReportableDetails(map[string]any{"price": p.Price.String()}).
			Mark(ierr.ErrValidation)
	}
	if p.DurationDays <= 0 {
		return ierr.NewError("plan duration must be positive").
			WithHint("Plan duration must be at least one day").
			WithReportableDetails(map[string]any{"duration_days": p.DurationDays}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DailyRate is the price of a single day of the plan, unrounded
func (p *Plan) DailyRate() decimal.Decimal {
	return p.Price.Div(decimal.NewFromInt(int64(p.DurationDays)))
}
