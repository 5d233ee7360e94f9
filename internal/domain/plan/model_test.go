package plan

import (
	"testing"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPlanValidate(t *testing.T) {
	valid := func() *Plan {
		return &Plan{
			ID:           "plan_1",
			Name:         "Monthly Basic",
			Tier:         types.PlanTierBasic,
			Price:        decimal.NewFromInt(100),
			DurationDays: 30,
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *Plan)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Plan) {}},
		{name: "zero price", mutate: func(p *Plan) { p.Price = decimal.Zero }, wantErr: true},
		{name: "negative price", mutate: func(p *Plan) { p.Price = decimal.NewFromInt(-5) }, wantErr: true},
		{name: "zero duration", mutate: func(p *Plan) { p.DurationDays = 0 }, wantErr: true},
		{name: "unknown tier", mutate: func(p *Plan) { p.Tier = "GOLD" }, wantErr: true},
		{name: "missing name", mutate: func(p *Plan) { p.Name = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
