package dto

import (
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/types"
	"github.com/fitclub/billing/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Code         string          `json:"code" csv:"code" validate:"required"`
	Name         string          `json:"name" csv:"name" validate:"required"`
	Description  string          `json:"description" csv:"description"`
	Tier         types.PlanTier  `json:"tier" csv:"tier" validate:"required"`
	Price        decimal.Decimal `json:"price" csv:"price" swaggertype:"string"`
	DurationDays int             `json:"duration_days" csv:"duration_days" validate:"required,gt=0"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToPlan().Validate()
}

func (r *CreatePlanRequest) ToPlan() *plan.Plan {
	return &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		Tier:         r.Tier,
		Price:        r.Price,
		DurationDays: r.DurationDays,
	}
}

type PlanResponse struct {
	*plan.Plan
}
