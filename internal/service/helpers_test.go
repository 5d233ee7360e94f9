package service

import (
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/proration"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/testutil"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
)

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		PlanRepo:         stores.PlanRepo,
		MembershipRepo:   stores.MembershipRepo,
		PaymentRepo:      stores.PaymentRepo,
		UserRepo:         stores.UserRepo,
		Calculator:       proration.NewCalculator(),
		CheckoutProvider: s.GetProvider(),
		Notifier:         s.GetNotifier(),
		Metrics:          s.GetMetrics(),
		Clock:            s.GetClock(),
		Location:         time.UTC,
	}
}

func seedMembership(
	s *testutil.BaseServiceTestSuite,
	userID string,
	p *plan.Plan,
	start, end time.Time,
	status types.MembershipStatus,
	autoRenew bool,
) *membership.Membership {
	m := &membership.Membership{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MEMBERSHIP),
		UserID:          userID,
		PlanID:          p.ID,
		StartDate:       start,
		EndDate:         end,
		Status:          status,
		AutoRenew:       autoRenew,
		PriceAtPurchase: p.Price,
	}
	if status == types.MembershipStatusFrozen {
		m.FrozenFrom = lo.ToPtr(types.AddDays(end, -10))
		m.FrozenTo = lo.ToPtr(types.AddDays(end, -5))
	}
	s.Require().NoError(s.GetStores().MembershipRepo.Create(s.GetContext(), m))
	return m
}

func seedPayment(s *testutil.BaseServiceTestSuite, userID string, p *plan.Plan, status types.PaymentStatus, createdAt time.Time) *payment.Payment {
	pay := payment.NewPending(userID, p.ID, types.PaymentTypeMembershipPurchase, p.Price, types.DefaultCurrency)
	pay.Status = status
	pay.CreatedAt = createdAt
	s.Require().NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), pay))
	return pay
}

func completedEvent(pay *payment.Payment, eventID string) []byte {
	return testutil.EventPayload(stripe.Event{
		ID:        eventID,
		Type:      stripe.EventCheckoutSessionCompleted,
		Kind:      stripe.EventKindCompleted,
		PaymentID: pay.ID,
		UserID:    pay.UserID,
		SessionID: lo.FromPtr(pay.SessionID),
	})
}
