package service

import (
	"context"

	"github.com/fitclub/billing/internal/api/dto"
	ierr "github.com/fitclub/billing/internal/errors"
)

type PlanService interface {
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	// CreatePlan adds a plan to the catalog. Codes are unique.
	CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.PlanRepo.GetByCode(ctx, req.Code)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ierr.NewErrorf("plan with code %s already exists", req.Code).
			WithHint("A plan with this code already exists").
			WithReportableDetails(map[string]any{"code": req.Code, "plan_id": existing.ID}).
			Mark(ierr.ErrAlreadyExists)
	}

	p := req.ToPlan()
	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("plan created", "plan_id", p.ID, "code", p.Code, "price", p.Price.String())
	return &dto.PlanResponse{Plan: p}, nil
}
