package testutil

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/metrics"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories
type Stores struct {
	PlanRepo       *InMemoryPlanStore
	MembershipRepo *InMemoryMembershipStore
	PaymentRepo    *InMemoryPaymentStore
	UserRepo       *InMemoryUserStore
}

// BaseServiceTestSuite wires in-memory stores and fakes for service tests.
// The clock starts at 2025-01-01 10:00 UTC.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	db       *MockPostgresClient
	provider *FakeCheckoutProvider
	notifier *RecordingNotifier
	clock    *FixedClock
	config   *config.Configuration
	logger   *logger.Logger
	metrics  metrics.BillingMetrics
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetRequestID(context.Background(), types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNoopLogger()
	s.clock = NewFixedClock(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	s.db = NewMockPostgresClient()
	s.provider = NewFakeCheckoutProvider()
	s.notifier = NewRecordingNotifier()
	s.metrics = metrics.NewBillingMetrics(metrics.NewRegistry())
	s.stores = Stores{
		PlanRepo:       NewInMemoryPlanStore(),
		MembershipRepo: NewInMemoryMembershipStore(),
		PaymentRepo:    NewInMemoryPaymentStore(),
		UserRepo:       NewInMemoryUserStore(),
	}
	s.stores.PaymentRepo.Now = s.clock.Now
	s.stores.MembershipRepo.Now = s.clock.Now
}

func (s *BaseServiceTestSuite) GetContext() context.Context        { return s.ctx }
func (s *BaseServiceTestSuite) GetStores() Stores                  { return s.stores }
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient         { return s.db }
func (s *BaseServiceTestSuite) GetProvider() *FakeCheckoutProvider { return s.provider }
func (s *BaseServiceTestSuite) GetNotifier() *RecordingNotifier    { return s.notifier }
func (s *BaseServiceTestSuite) GetClock() *FixedClock              { return s.clock }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration   { return s.config }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger          { return s.logger }
func (s *BaseServiceTestSuite) GetMetrics() metrics.BillingMetrics { return s.metrics }

// Today is the clock's current calendar date
func (s *BaseServiceTestSuite) Today() time.Time {
	return types.ToDate(s.clock.Now(), time.UTC)
}

// CreatePlan stores a plan and returns it
func (s *BaseServiceTestSuite) CreatePlan(id string, tier types.PlanTier, price string, durationDays int) *plan.Plan {
	p := &plan.Plan{
		ID:           id,
		Name:         id + " plan",
		Code:         id,
		Tier:         tier,
		Price:        decimal.RequireFromString(price),
		DurationDays: durationDays,
		CreatedAt:    s.clock.Now(),
		UpdatedAt:    s.clock.Now(),
	}
	s.Require().NoError(s.stores.PlanRepo.Create(s.ctx, p))
	return p
}

// CreateUser stores a user and returns it
func (s *BaseServiceTestSuite) CreateUser(id string) *user.User {
	u := &user.User{ID: id, Email: id + "@example.com", FirstName: "Test", LastName: id}
	s.Require().NoError(s.stores.UserRepo.Create(s.ctx, u))
	return u
}
