package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/testutil"
	"github.com/fitclub/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service     PaymentService
	memberships MembershipService
	basic       *plan.Plan
	premium     *plan.Plan
	userID      string
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewPaymentService(params)
	s.memberships = NewMembershipService(params)
	s.basic = s.CreatePlan("basic", types.PlanTierBasic, "100", 30)
	s.premium = s.CreatePlan("premium", types.PlanTierPremium, "250", 30)
	s.userID = s.CreateUser("user_1").ID
}

func (s *PaymentServiceSuite) TestPurchaseThenCompletedWebhook() {
	purchase, err := s.memberships.Purchase(s.GetContext(), s.userID, dto.PurchaseMembershipRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)

	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), purchase.PaymentID)
	s.Require().NoError(err)

	resp, err := s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_1"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.True(resp.Received)
	s.Equal(stripe.EventCheckoutSessionCompleted, resp.EventType)
	s.Equal(webhookResultProcessed, resp.Result)

	paid, err := s.GetStores().PaymentRepo.Get(s.GetContext(), pay.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPaid, paid.Status)

	live, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), s.userID)
	s.Require().NoError(err)
	s.Equal(purchase.Membership.ID, live.ID)
	s.Equal(types.MembershipStatusActive, live.Status)

	s.Equal([]string{"Payment Successful", "New Membership Created"}, s.GetNotifier().Titles())
	s.Len(s.GetNotifier().MemberMessages(s.userID), 1)

	status, err := s.service.GetBySession(s.GetContext(), "cs_test_1")
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPaid, status.Status)
	s.Equal(pay.ID, status.PaymentID)
}

func (s *PaymentServiceSuite) TestDuplicateCompletedEvent() {
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)

	payload := completedEvent(pay, "evt_dup")
	first, err := s.service.HandleWebhook(s.GetContext(), payload, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultProcessed, first.Result)

	second, err := s.service.HandleWebhook(s.GetContext(), payload, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultAlreadyProcessed, second.Result)

	s.Len(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), s.userID), 1)
	s.Equal([]string{"Payment Successful", "New Membership Created"}, s.GetNotifier().Titles())
	s.Len(s.GetNotifier().MemberMessages(s.userID), 1)
}

func (s *PaymentServiceSuite) TestCheckoutCreatesMembershipOnPayment() {
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeMembershipPurchase, checkout.PaymentType)
	s.Equal(types.PaymentStatusPending, checkout.Status)
	s.Equal("100.00", checkout.Amount.StringFixed(2))
	s.Equal("cs_test_1", checkout.SessionID)
	s.False(checkout.Reused)

	// no membership until the payment lands
	s.Empty(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), s.userID))

	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)
	_, err = s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_2"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)

	live, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), s.userID)
	s.Require().NoError(err)
	s.Equal(s.basic.ID, live.PlanID)
	s.Equal(s.Today(), live.StartDate)
	s.Equal(types.AddDays(s.Today(), 30), live.EndDate)
	s.False(live.AutoRenew)
}

func (s *PaymentServiceSuite) TestCheckoutReusesRecentSession() {
	first, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)

	s.GetClock().Advance(10 * time.Minute)
	second, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.True(second.Reused)
	s.Equal(first.PaymentID, second.PaymentID)
	s.Equal(first.CheckoutURL, second.CheckoutURL)
	s.Len(s.GetProvider().Sessions(), 1)

	s.GetClock().Advance(6 * time.Minute)
	third, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.False(third.Reused)
	s.NotEqual(first.PaymentID, third.PaymentID)
	s.Len(s.GetProvider().Sessions(), 2)

	// a different plan never reuses the session
	other, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.premium.ID})
	s.Require().NoError(err)
	s.False(other.Reused)

	s.NotEmpty(s.GetDB().Locks())
}

func (s *PaymentServiceSuite) TestCheckoutProratesActiveMembership() {
	start := types.AddDays(s.Today(), -20)
	seedMembership(&s.BaseServiceTestSuite, s.userID, s.basic,
		start, types.AddDays(start, 30), types.MembershipStatusActive, false)

	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.premium.ID})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeUpgradeFee, checkout.PaymentType)
	s.Equal("216.67", checkout.Amount.StringFixed(2))
}

func (s *PaymentServiceSuite) TestCheckoutProviderFailure() {
	s.GetProvider().SessionErr = errors.New("stripe is down")

	_, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().Error(err)
	s.True(ierr.IsCheckoutCreationFailed(err))

	payments := s.GetStores().PaymentRepo.ListByUser(s.GetContext(), s.userID)
	s.Require().Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].Status)

	// a failed payment is not reused
	s.GetProvider().SessionErr = nil
	retry, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.False(retry.Reused)
	s.NotEqual(payments[0].ID, retry.PaymentID)
}

func (s *PaymentServiceSuite) TestPurchaseProviderFailureRetriedByCheckout() {
	s.GetProvider().SessionErr = errors.New("stripe is down")

	_, err := s.memberships.Purchase(s.GetContext(), s.userID, dto.PurchaseMembershipRequest{PlanID: s.basic.ID})
	s.Require().Error(err)
	s.True(ierr.IsCheckoutCreationFailed(err))

	live, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), s.userID)
	s.Require().NoError(err)

	s.GetProvider().SessionErr = nil
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeMembershipPurchase, checkout.PaymentType)
	s.Equal(types.PaymentStatusPending, checkout.Status)
	s.Equal("100.00", checkout.Amount.StringFixed(2))
	s.NotEmpty(checkout.SessionID)
	s.NotEmpty(checkout.CheckoutURL)

	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)
	resp, err := s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_purchase_retry"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultProcessed, resp.Result)

	paid, err := s.GetStores().PaymentRepo.Get(s.GetContext(), pay.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPaid, paid.Status)

	after, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), s.userID)
	s.Require().NoError(err)
	s.Equal(live.ID, after.ID)
	s.Equal(live.EndDate, after.EndDate)
	s.Len(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), s.userID), 1)
	s.Equal([]string{"Payment Successful", "New Membership Created"}, s.GetNotifier().Titles())

	// nothing is left to pay on this plan
	_, err = s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PaymentServiceSuite) TestCheckoutChargesUnpaidRenewal() {
	seedMembership(&s.BaseServiceTestSuite, s.userID, s.basic,
		s.Today(), types.AddDays(s.Today(), 30), types.MembershipStatusActive, true)

	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeMembershipPurchase, checkout.PaymentType)
	s.Equal("100.00", checkout.Amount.StringFixed(2))
}

func (s *PaymentServiceSuite) TestCheckoutRejectsFrozenMembership() {
	seedMembership(&s.BaseServiceTestSuite, s.userID, s.basic,
		s.Today(), types.AddDays(s.Today(), 30), types.MembershipStatusFrozen, false)

	for _, target := range []*plan.Plan{s.basic, s.premium} {
		_, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: target.ID})
		s.Require().Error(err, target.ID)
		s.True(ierr.IsInvalidTransition(err), target.ID)
	}

	s.Empty(s.GetStores().PaymentRepo.ListByUser(s.GetContext(), s.userID))
	s.Empty(s.GetProvider().Sessions())
}

func (s *PaymentServiceSuite) TestCompletedUpgradeFeeExtendsTerm() {
	long := s.CreatePlan("long", types.PlanTierStandard, "300", 90)
	start := types.AddDays(s.Today(), -20)
	m := seedMembership(&s.BaseServiceTestSuite, s.userID, s.basic,
		start, types.AddDays(start, 30), types.MembershipStatusActive, false)

	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: long.ID})
	s.Require().NoError(err)
	s.Equal(types.PaymentTypeUpgradeFee, checkout.PaymentType)
	s.Equal("266.67", checkout.Amount.StringFixed(2))

	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)
	resp, err := s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_upgrade"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultProcessed, resp.Result)

	live, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), s.userID)
	s.Require().NoError(err)
	s.Equal(m.ID, live.ID)
	s.Equal(long.ID, live.PlanID)
	s.Equal(start, live.StartDate)
	s.Equal(types.AddDays(start, 90), live.EndDate)
	s.Equal("300.00", live.PriceAtPurchase.StringFixed(2))
	s.Equal([]string{"Payment Successful"}, s.GetNotifier().Titles())
}

func (s *PaymentServiceSuite) TestCustomerFailureMarksPaymentFailed() {
	s.GetProvider().CustomerErr = errors.New("customer api unavailable")

	_, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().Error(err)
	s.True(ierr.IsCheckoutCreationFailed(err))

	payments := s.GetStores().PaymentRepo.ListByUser(s.GetContext(), s.userID)
	s.Require().Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].Status)
}

func (s *PaymentServiceSuite) TestInvalidSignature() {
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)

	_, err = s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_forged"), "t=1,v1=forged")
	s.Require().Error(err)
	s.True(ierr.IsInvalidSignature(err))

	stored, err := s.GetStores().PaymentRepo.Get(s.GetContext(), pay.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, stored.Status)
	s.Empty(s.GetNotifier().Titles())
}

func (s *PaymentServiceSuite) TestFailedThenCompleted() {
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)
	pay, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)

	failed := testutil.EventPayload(stripe.Event{
		ID:           "evt_failed",
		Type:         stripe.EventPaymentIntentPaymentFailed,
		Kind:         stripe.EventKindFailed,
		PaymentID:    pay.ID,
		UserID:       s.userID,
		ErrorMessage: "Your card was declined.",
	})
	resp, err := s.service.HandleWebhook(s.GetContext(), failed, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultProcessed, resp.Result)

	stored, err := s.GetStores().PaymentRepo.Get(s.GetContext(), pay.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFailed, stored.Status)
	s.Equal("Your card was declined.", *stored.ErrorMessage)

	// a failed payment stays failed, the member starts a new checkout instead
	resp, err = s.service.HandleWebhook(s.GetContext(), completedEvent(pay, "evt_retry"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultAlreadyProcessed, resp.Result)

	stored, err = s.GetStores().PaymentRepo.Get(s.GetContext(), pay.ID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFailed, stored.Status)
	s.Empty(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), s.userID))
	s.Empty(s.GetNotifier().Titles())
	s.Empty(s.GetNotifier().MemberMessages(s.userID))
}

func (s *PaymentServiceSuite) TestExpiredEvent() {
	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)

	expired := testutil.EventPayload(stripe.Event{
		ID:        "evt_expired",
		Type:      stripe.EventCheckoutSessionExpired,
		Kind:      stripe.EventKindExpired,
		SessionID: checkout.SessionID,
	})
	resp, err := s.service.HandleWebhook(s.GetContext(), expired, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultProcessed, resp.Result)

	stored, err := s.GetStores().PaymentRepo.Get(s.GetContext(), checkout.PaymentID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusExpired, stored.Status)

	// an expired payment never turns PAID
	resp, err = s.service.HandleWebhook(s.GetContext(), completedEvent(stored, "evt_late"), testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultAlreadyProcessed, resp.Result)
	s.Empty(s.GetNotifier().Titles())
}

func (s *PaymentServiceSuite) TestUnknownAndIgnoredEvents() {
	unknown := testutil.EventPayload(stripe.Event{
		ID:        "evt_unknown",
		Type:      stripe.EventCheckoutSessionCompleted,
		Kind:      stripe.EventKindCompleted,
		PaymentID: "pay_missing",
	})
	resp, err := s.service.HandleWebhook(s.GetContext(), unknown, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultUnknownPayment, resp.Result)

	ignored := testutil.EventPayload(stripe.Event{
		ID:   "evt_other",
		Type: "customer.created",
		Kind: stripe.EventKindIgnored,
	})
	resp, err = s.service.HandleWebhook(s.GetContext(), ignored, testutil.ValidWebhookSignature)
	s.Require().NoError(err)
	s.Equal(webhookResultIgnored, resp.Result)
	s.Equal("customer.created", resp.EventType)
}

func (s *PaymentServiceSuite) TestGetBySession() {
	_, err := s.service.GetBySession(s.GetContext(), "")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.GetBySession(s.GetContext(), "cs_missing")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))

	checkout, err := s.service.InitiateCheckout(s.GetContext(), s.userID, dto.InitiateCheckoutRequest{PlanID: s.basic.ID})
	s.Require().NoError(err)

	status, err := s.service.GetBySession(s.GetContext(), checkout.SessionID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, status.Status)
	s.Equal("Payment is being confirmed", status.Message)
}

func (s *PaymentServiceSuite) TestSessionExpiryWindow() {
	svc := &paymentService{ServiceParams: newTestServiceParams(&s.BaseServiceTestSuite)}

	tests := []struct {
		ttl    time.Duration
		expect bool
	}{
		{10 * time.Minute, false},
		{30 * time.Minute, true},
		{2 * time.Hour, true},
		{24 * time.Hour, false},
	}
	for _, tt := range tests {
		svc.Config.Billing.SessionTTL = tt.ttl
		expiry := svc.sessionExpiry()
		if !tt.expect {
			s.Nil(expiry, tt.ttl.String())
			continue
		}
		s.Require().NotNil(expiry, tt.ttl.String())
		s.Equal(s.GetClock().Now().Add(tt.ttl), *expiry)
	}
}
