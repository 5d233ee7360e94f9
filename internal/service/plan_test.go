package service

import (
	"testing"

	"github.com/fitclub/billing/internal/api/dto"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/testutil"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PlanService
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPlanService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *PlanServiceSuite) TestCreateAndGetPlan() {
	req := dto.CreatePlanRequest{
		Code:         "gold-monthly",
		Name:         "Gold",
		Tier:         types.PlanTierPremium,
		Price:        decimal.RequireFromString("49.90"),
		DurationDays: 30,
	}

	created, err := s.service.CreatePlan(s.GetContext(), req)
	s.Require().NoError(err)
	s.NotEmpty(created.ID)

	got, err := s.service.GetPlan(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal("gold-monthly", got.Code)
	s.True(got.Price.Equal(decimal.RequireFromString("49.90")))

	_, err = s.service.CreatePlan(s.GetContext(), req)
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PlanServiceSuite) TestCreatePlanValidation() {
	tests := []struct {
		name string
		req  dto.CreatePlanRequest
	}{
		{"missing code", dto.CreatePlanRequest{Name: "x", Tier: types.PlanTierBasic, Price: decimal.NewFromInt(10), DurationDays: 30}},
		{"zero price", dto.CreatePlanRequest{Code: "x", Name: "x", Tier: types.PlanTierBasic, Price: decimal.Zero, DurationDays: 30}},
		{"unknown tier", dto.CreatePlanRequest{Code: "x", Name: "x", Tier: "GOLD", Price: decimal.NewFromInt(10), DurationDays: 30}},
		{"no duration", dto.CreatePlanRequest{Code: "x", Name: "x", Tier: types.PlanTierBasic, Price: decimal.NewFromInt(10)}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreatePlan(s.GetContext(), tt.req)
			s.Require().Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *PlanServiceSuite) TestGetPlanMissing() {
	_, err := s.service.GetPlan(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.GetPlan(s.GetContext(), "missing")
	s.True(ierr.IsNotFound(err))
}
