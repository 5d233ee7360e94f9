package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/proration"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PaymentService registers payments, opens checkout sessions and reconciles provider events
type PaymentService interface {
	InitiateCheckout(ctx context.Context, userID string, req dto.InitiateCheckoutRequest) (*dto.CheckoutResponse, error)
	// OpenSession opens a checkout session for a PENDING payment. On provider failure the
	// payment is marked FAILED and ErrCheckoutCreationFailed is returned.
	OpenSession(ctx context.Context, pay *payment.Payment) (*payment.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
	GetBySession(ctx context.Context, sessionID string) (*dto.PaymentStatusResponse, error)
}

const (
	webhookResultProcessed        = "processed"
	webhookResultAlreadyProcessed = "already_processed"
	webhookResultUnknownPayment   = "unknown_payment"
	webhookResultIgnored          = "ignored"
	webhookResultRejected         = "rejected"

	minSessionTTL = 30 * time.Minute
	maxSessionTTL = 24 * time.Hour
)

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
	}
}

func (s *paymentService) InitiateCheckout(ctx context.Context, userID string, req dto.InitiateCheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var pay *payment.Payment
	var reused bool
	var upserted *membership.Membership

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(ctx, types.LockScopeCheckout, map[string]interface{}{
				"user_id": userID,
				"plan_id": p.ID,
			}),
		}); err != nil {
			return err
		}

		existing, err := s.PaymentRepo.FindReusable(ctx, userID, p.ID, now.Add(-s.Config.Billing.CheckoutDedupWindow))
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			pay = existing
			reused = true
			return nil
		}

		cost, err := s.priceCheckout(ctx, userID, p)
		if err != nil {
			return err
		}

		pay = payment.NewPending(userID, p.ID, cost.Type, cost.Amount, s.currency())
		if pay.MoneyToPay.IsZero() {
			pay.Status = types.PaymentStatusPaid
		}
		if err := s.PaymentRepo.Create(ctx, pay); err != nil {
			return err
		}

		if pay.Status == types.PaymentStatusPaid {
			upserted, err = NewMembershipService(s.ServiceParams).UpsertFromPayment(ctx, pay)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reused {
		s.Metrics.IncCheckoutReused()
		s.Logger.WithContext(ctx).Infow("reusing checkout session inside dedup window",
			"payment_id", pay.ID,
			"plan_id", p.ID,
		)
		return dto.NewCheckoutResponse(pay, true), nil
	}

	s.Metrics.IncPaymentCreated(pay.Type, pay.Currency)

	if pay.Status == types.PaymentStatusPaid {
		s.Metrics.IncPaymentTransition(pay.Status, pay.Currency)
		s.announcePaid(ctx, pay, upserted)
		return dto.NewCheckoutResponse(pay, false), nil
	}

	pay, err = s.OpenSession(ctx, pay)
	if err != nil {
		return nil, err
	}

	return dto.NewCheckoutResponse(pay, false), nil
}

// priceCheckout decides what a checkout for p collects:
//   - no live membership: the full plan price as a purchase
//   - an ACTIVE membership on p: whatever is still owed for it, nothing if it is paid
//   - an ACTIVE membership on another plan: the prorated upgrade fee
//
// A FROZEN membership has to be resumed first.
func (s *paymentService) priceCheckout(ctx context.Context, userID string, p *plan.Plan) (*proration.Result, error) {
	params := proration.UpgradeParams{NewPlan: p, Today: s.Today()}

	live, err := s.MembershipRepo.GetLiveByUser(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if live == nil {
		return s.Calculator.ComputeUpgradeCost(params)
	}

	if live.Status != types.MembershipStatusActive {
		return nil, ierr.NewErrorf("cannot start a checkout while the membership is %s", live.Status).
			WithHint("Resume your membership before starting a new checkout").
			WithReportableDetails(map[string]any{
				"membership_id": live.ID,
				"status":        live.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	if live.PlanID == p.ID {
		return s.outstandingCost(ctx, live, p)
	}

	currentPlan, err := s.PlanRepo.Get(ctx, live.PlanID)
	if err != nil {
		return nil, err
	}
	params.Current = live
	params.CurrentPlan = currentPlan
	return s.Calculator.ComputeUpgradeCost(params)
}

// outstandingCost prices the checkout of the plan a live membership is already on.
// The last unpaid attempt since the membership started is charged again, a membership
// without any attempt (auto renewed) is charged the plan price.
func (s *paymentService) outstandingCost(ctx context.Context, m *membership.Membership, p *plan.Plan) (*proration.Result, error) {
	payments, err := s.PaymentRepo.ListForPlan(ctx, m.UserID, p.ID, m.CreatedAt)
	if err != nil {
		return nil, err
	}

	if paid, ok := lo.Find(payments, func(pay *payment.Payment) bool {
		return pay.Status == types.PaymentStatusPaid
	}); ok {
		return nil, ierr.NewError("membership is already paid").
			WithHint("Your membership on this plan is already paid").
			WithReportableDetails(map[string]any{
				"membership_id": m.ID,
				"payment_id":    paid.ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if len(payments) > 0 {
		last := payments[0]
		return &proration.Result{Amount: last.MoneyToPay, Type: last.Type, Credit: decimal.Zero}, nil
	}
	return &proration.Result{Amount: p.Price, Type: types.PaymentTypeMembershipPurchase, Credit: decimal.Zero}, nil
}

func (s *paymentService) OpenSession(ctx context.Context, pay *payment.Payment) (*payment.Payment, error) {
	log := s.Logger.WithContext(ctx)

	if pay.Status != types.PaymentStatusPending {
		return nil, ierr.NewErrorf("cannot open a checkout session for a %s payment", pay.Status).
			WithHint("Payment is no longer awaiting checkout").
			WithReportableDetails(map[string]any{"payment_id": pay.ID}).
			Mark(ierr.ErrInvalidOperation)
	}

	u, err := s.UserRepo.Get(ctx, pay.UserID)
	if err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, pay.PlanID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.CheckoutProvider.GetOrCreateCustomer(ctx, stripe.CustomerRequest{
		UserID:     u.ID,
		Email:      u.Email,
		Name:       u.FullName(),
		ExistingID: lo.FromPtr(u.StripeCustomerID),
	})
	if err != nil {
		return nil, s.failCheckout(ctx, pay, err)
	}

	if u.StripeCustomerID == nil || *u.StripeCustomerID != customerID {
		if err := s.UserRepo.SetStripeCustomerID(ctx, u.ID, customerID); err != nil {
			// the next checkout creates another customer, nothing is lost
			log.Warnw("failed to store stripe customer id", "user_id", u.ID, "error", err)
		}
	}

	session, err := s.CheckoutProvider.CreateCheckoutSession(ctx, stripe.CreateSessionRequest{
		CustomerID:     customerID,
		Amount:         pay.MoneyToPay,
		Currency:       pay.Currency,
		ProductName:    p.Name,
		Description:    sessionDescription(pay, p),
		Metadata:       pay.Metadata(),
		SuccessURL:     s.Config.Billing.SuccessURL,
		CancelURL:      s.Config.Billing.CancelURL,
		IdempotencyKey: "checkout_" + pay.ID,
		ExpiresAt:      s.sessionExpiry(),
	})
	if err != nil {
		return nil, s.failCheckout(ctx, pay, err)
	}

	if err := s.PaymentRepo.SetSession(ctx, pay.ID, session.ID, session.URL); err != nil {
		return nil, err
	}
	pay.SessionID = lo.ToPtr(session.ID)
	pay.SessionURL = lo.ToPtr(session.URL)

	log.Infow("checkout session created",
		"payment_id", pay.ID,
		"session_id", session.ID,
		"amount", pay.MoneyToPay.String(),
	)
	return pay, nil
}

// failCheckout records the provider error on the payment and returns the error to surface
func (s *paymentService) failCheckout(ctx context.Context, pay *payment.Payment, cause error) error {
	msg := ierr.DisplayMessage(cause)

	ok, err := s.PaymentRepo.Transition(ctx, pay.ID, []types.PaymentStatus{types.PaymentStatusPending}, types.PaymentStatusFailed, &msg)
	if err != nil {
		s.Logger.WithContext(ctx).Errorw("failed to mark payment failed", "payment_id", pay.ID, "error", err)
	} else if ok {
		pay.Status = types.PaymentStatusFailed
		pay.ErrorMessage = &msg
		s.Metrics.IncPaymentTransition(pay.Status, pay.Currency)
	}

	if ierr.IsCheckoutCreationFailed(cause) {
		return cause
	}
	return ierr.WithError(cause).
		WithHint(msg).
		WithReportableDetails(map[string]any{"payment_id": pay.ID}).
		Mark(ierr.ErrCheckoutCreationFailed)
}

func (s *paymentService) sessionExpiry() *time.Time {
	ttl := s.Config.Billing.SessionTTL
	if ttl < minSessionTTL || ttl >= maxSessionTTL {
		// provider default applies
		return nil
	}
	return lo.ToPtr(s.Clock.Now().Add(ttl))
}

func sessionDescription(pay *payment.Payment, p *plan.Plan) string {
	if pay.Type == types.PaymentTypeUpgradeFee {
		return fmt.Sprintf("Upgrade to %s", p.Name)
	}
	return fmt.Sprintf("%s membership, %d days", p.Name, p.DurationDays)
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	log := s.Logger.WithContext(ctx)

	event, err := s.CheckoutProvider.ParseEvent(payload, signature)
	if err != nil {
		if ierr.IsInvalidSignature(err) {
			log.Warnw("rejected webhook with invalid signature", "error", err)
			s.Metrics.IncWebhookEvent("unknown", webhookResultRejected)
		}
		return nil, err
	}

	eventLog := log.With("event_id", event.ID, "event_type", event.Type)

	result := webhookResultIgnored
	switch event.Kind {
	case stripe.EventKindCompleted:
		result, err = s.handleCompleted(ctx, event)
	case stripe.EventKindFailed:
		result, err = s.handleTerminal(ctx, event, types.PaymentStatusFailed, &event.ErrorMessage)
	case stripe.EventKindExpired:
		result, err = s.handleTerminal(ctx, event, types.PaymentStatusExpired, nil)
	default:
		eventLog.Debugw("ignoring webhook event")
	}
	if err != nil {
		eventLog.Errorw("failed to process webhook event", "error", err)
		return nil, err
	}

	s.Metrics.IncWebhookEvent(event.Type, result)
	eventLog.Infow("webhook event handled", "payment_id", event.PaymentID, "result", result)

	return &dto.WebhookResponse{Received: true, EventType: event.Type, Result: result}, nil
}

// findEventPayment resolves the payment an event refers to, nil when it is unknown
func (s *paymentService) findEventPayment(ctx context.Context, event *stripe.Event) (*payment.Payment, error) {
	var pay *payment.Payment
	var err error

	switch {
	case event.PaymentID != "":
		pay, err = s.PaymentRepo.Get(ctx, event.PaymentID)
	case event.SessionID != "":
		pay, err = s.PaymentRepo.GetBySessionID(ctx, event.SessionID)
	default:
		return nil, nil
	}

	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return pay, nil
}

func (s *paymentService) handleCompleted(ctx context.Context, event *stripe.Event) (string, error) {
	pay, err := s.findEventPayment(ctx, event)
	if err != nil {
		return "", err
	}
	if pay == nil {
		s.Logger.WithContext(ctx).Warnw("completed event for unknown payment",
			"payment_id", event.PaymentID,
			"session_id", event.SessionID,
		)
		return webhookResultUnknownPayment, nil
	}

	var transitioned bool
	var m *membership.Membership

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.PaymentRepo.Transition(ctx, pay.ID,
			[]types.PaymentStatus{types.PaymentStatusPending},
			types.PaymentStatusPaid, nil)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		transitioned = true
		pay.Status = types.PaymentStatusPaid

		m, err = NewMembershipService(s.ServiceParams).UpsertFromPayment(ctx, pay)
		return err
	})
	if err != nil {
		return "", err
	}

	if !transitioned {
		return webhookResultAlreadyProcessed, nil
	}

	s.Metrics.IncPaymentTransition(pay.Status, pay.Currency)
	s.Metrics.ObservePaymentAmount(pay.MoneyToPay, pay.Currency, pay.Status)
	s.announcePaid(ctx, pay, m)

	return webhookResultProcessed, nil
}

func (s *paymentService) handleTerminal(ctx context.Context, event *stripe.Event, to types.PaymentStatus, errorMessage *string) (string, error) {
	pay, err := s.findEventPayment(ctx, event)
	if err != nil {
		return "", err
	}
	if pay == nil {
		s.Logger.WithContext(ctx).Warnw("webhook event for unknown payment",
			"payment_id", event.PaymentID,
			"session_id", event.SessionID,
		)
		return webhookResultUnknownPayment, nil
	}

	ok, err := s.PaymentRepo.Transition(ctx, pay.ID, []types.PaymentStatus{types.PaymentStatusPending}, to, errorMessage)
	if err != nil {
		return "", err
	}
	if !ok {
		return webhookResultAlreadyProcessed, nil
	}

	s.Metrics.IncPaymentTransition(to, pay.Currency)
	return webhookResultProcessed, nil
}

func (s *paymentService) GetBySession(ctx context.Context, sessionID string) (*dto.PaymentStatusResponse, error) {
	if sessionID == "" {
		return nil, ierr.NewError("session_id is required").
			WithHint("Missing checkout session id").
			Mark(ierr.ErrValidation)
	}

	pay, err := s.PaymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &dto.PaymentStatusResponse{
		PaymentID:   pay.ID,
		PaymentType: pay.Type,
		Status:      pay.Status,
		Amount:      pay.MoneyToPay,
		Currency:    pay.Currency,
		Message:     paymentStatusMessage(pay.Status),
	}, nil
}

func paymentStatusMessage(status types.PaymentStatus) string {
	switch status {
	case types.PaymentStatusPaid:
		return "Payment successful, your membership is active"
	case types.PaymentStatusPending:
		return "Payment is being confirmed"
	case types.PaymentStatusFailed, types.PaymentStatusRejected:
		return "Payment failed"
	case types.PaymentStatusExpired:
		return "Checkout session expired"
	}
	return string(status)
}
