package service

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/proration"
	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/integration/stripe"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/metrics"
	"github.com/fitclub/billing/internal/notification"
	"github.com/fitclub/billing/internal/postgres"
	"github.com/fitclub/billing/internal/types"
)

// Clock returns the current instant. Injected so tests can pin "today".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	PlanRepo       plan.Repository
	MembershipRepo membership.Repository
	PaymentRepo    payment.Repository
	UserRepo       user.Repository

	// Collaborators
	Calculator       proration.Calculator
	CheckoutProvider stripe.CheckoutProvider
	Notifier         notification.Dispatcher
	Metrics          metrics.BillingMetrics
	Clock            Clock

	// Location decides where a calendar day starts
	Location *time.Location
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	planRepo plan.Repository,
	membershipRepo membership.Repository,
	paymentRepo payment.Repository,
	userRepo user.Repository,
	calculator proration.Calculator,
	checkoutProvider stripe.CheckoutProvider,
	notifier notification.Dispatcher,
	billingMetrics metrics.BillingMetrics,
	clock Clock,
) (ServiceParams, error) {
	loc, err := types.LoadLocation(config.Billing.Timezone)
	if err != nil {
		return ServiceParams{}, err
	}

	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		PlanRepo:         planRepo,
		MembershipRepo:   membershipRepo,
		PaymentRepo:      paymentRepo,
		UserRepo:         userRepo,
		Calculator:       calculator,
		CheckoutProvider: checkoutProvider,
		Notifier:         notifier,
		Metrics:          billingMetrics,
		Clock:            clock,
		Location:         loc,
	}, nil
}

// Today is the current calendar date in the billing timezone
func (p ServiceParams) Today() time.Time {
	return types.ToDate(p.Clock.Now(), p.Location)
}

func (p ServiceParams) currency() string {
	if p.Config.Billing.Currency == "" {
		return types.DefaultCurrency
	}
	return p.Config.Billing.Currency
}

// lookupParties loads the member and plan for notification text. Failures are logged and
// leave the value nil, messages render placeholders for missing records.
func (p ServiceParams) lookupParties(ctx context.Context, userID, planID string) (*user.User, *plan.Plan) {
	u, err := p.UserRepo.Get(ctx, userID)
	if err != nil {
		p.Logger.WithContext(ctx).Warnw("failed to load user for notification", "user_id", userID, "error", err)
		u = nil
	}

	pl, err := p.PlanRepo.Get(ctx, planID)
	if err != nil {
		p.Logger.WithContext(ctx).Warnw("failed to load plan for notification", "plan_id", planID, "error", err)
		pl = nil
	}

	return u, pl
}

func (p ServiceParams) lockUser(ctx context.Context, userID string) error {
	return p.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(ctx, types.LockScopeMembership, map[string]interface{}{
			"user_id": userID,
		}),
	})
}

// announcePaid fires the notifications of a PAID transition
func (p ServiceParams) announcePaid(ctx context.Context, pay *payment.Payment, m *membership.Membership) {
	u, pl := p.lookupParties(ctx, pay.UserID, pay.PlanID)

	paid := notification.PaymentSuccessMessage(pay, pl, u)
	p.Notifier.Notify(ctx, paid)
	p.Notifier.NotifyMember(ctx, u, paid)

	if pay.Type == types.PaymentTypeMembershipPurchase && m != nil {
		p.Notifier.Notify(ctx, notification.NewMembershipMessage(m, pl, u))
	}
}
