package membership

import (
	"testing"
	"time"

	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func basicPlan() *plan.Plan {
	return &plan.Plan{ID: "plan_basic", Name: "Basic", Tier: types.PlanTierBasic, Price: decimal.NewFromInt(100), DurationDays: 30}
}

func TestNew(t *testing.T) {
	m := New("user_1", basicPlan(), today, true)

	assert.Equal(t, types.MembershipStatusActive, m.Status)
	assert.Equal(t, types.AddDays(today, 30), m.EndDate)
	assert.True(t, m.PriceAtPurchase.Equal(decimal.NewFromInt(100)))
	assert.True(t, m.AutoRenew)
	assert.Contains(t, m.ID, "mem_")
}

func TestFreeze(t *testing.T) {
	t.Run("extends end date by frozen span", func(t *testing.T) {
		m := New("user_1", basicPlan(), today, false)
		from := types.AddDays(today, 1)
		to := types.AddDays(today, 11)

		require.NoError(t, m.Freeze(from, to, today))
		assert.Equal(t, types.MembershipStatusFrozen, m.Status)
		assert.Equal(t, types.AddDays(today, 40), m.EndDate)
		assert.Equal(t, from, *m.FrozenFrom)
		assert.Equal(t, to, *m.FrozenTo)
	})

	t.Run("freeze starting today is allowed", func(t *testing.T) {
		m := New("user_1", basicPlan(), today, false)
		require.NoError(t, m.Freeze(today, types.AddDays(today, 3), today))
	})

	tests := []struct {
		name  string
		setup func(m *Membership)
		from  time.Time
		to    time.Time
		check func(error) bool
	}{
		{name: "from equals to", from: types.AddDays(today, 2), to: types.AddDays(today, 2), check: ierr.IsValidation},
		{name: "from after to", from: types.AddDays(today, 5), to: types.AddDays(today, 2), check: ierr.IsValidation},
		{name: "from in the past", from: types.AddDays(today, -1), to: types.AddDays(today, 2), check: ierr.IsValidation},
		{
			name:  "already frozen",
			setup: func(m *Membership) { m.Status = types.MembershipStatusFrozen },
			from:  types.AddDays(today, 1), to: types.AddDays(today, 2),
			check: ierr.IsInvalidTransition,
		},
		{
			name:  "expired",
			setup: func(m *Membership) { m.Status = types.MembershipStatusExpired },
			from:  types.AddDays(today, 1), to: types.AddDays(today, 2),
			check: ierr.IsInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("user_1", basicPlan(), today, false)
			if tt.setup != nil {
				tt.setup(m)
			}
			end := m.EndDate

			err := m.Freeze(tt.from, tt.to, today)
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, end, m.EndDate)
		})
	}
}

func TestResume(t *testing.T) {
	m := New("user_1", basicPlan(), today, false)
	require.NoError(t, m.Freeze(types.AddDays(today, 1), types.AddDays(today, 6), today))

	require.NoError(t, m.Resume())
	assert.Equal(t, types.MembershipStatusActive, m.Status)
	assert.Nil(t, m.FrozenFrom)
	assert.Nil(t, m.FrozenTo)
	assert.Equal(t, types.AddDays(today, 35), m.EndDate)

	err := m.Resume()
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidTransition(err))
}

func TestApplyUpgrade(t *testing.T) {
	m := New("user_1", basicPlan(), today, false)
	premium := &plan.Plan{ID: "plan_premium", Name: "Premium", Tier: types.PlanTierPremium, Price: decimal.NewFromInt(250), DurationDays: 90}

	require.NoError(t, m.CanUpgrade())
	m.ApplyUpgrade(premium)

	assert.Equal(t, "plan_premium", m.PlanID)
	assert.True(t, m.PriceAtPurchase.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, types.AddDays(today, 90), m.EndDate)

	m.Status = types.MembershipStatusFrozen
	assert.True(t, ierr.IsInvalidTransition(m.CanUpgrade()))
}

func TestRemainingDays(t *testing.T) {
	m := New("user_1", basicPlan(), today, false)

	assert.Equal(t, 30, m.RemainingDays(today))
	assert.Equal(t, 0, m.RemainingDays(types.AddDays(today, 45)))
}

func TestExpireClearsFreeze(t *testing.T) {
	m := New("user_1", basicPlan(), today, false)
	require.NoError(t, m.Freeze(types.AddDays(today, 1), types.AddDays(today, 2), today))

	m.Expire()
	assert.Equal(t, types.MembershipStatusExpired, m.Status)
	assert.Nil(t, m.FrozenFrom)
	assert.Nil(t, m.FrozenTo)
}
