package service

import (
	"testing"
	"time"

	"github.com/fitclub/billing/internal/domain/plan"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/testutil"
	"github.com/fitclub/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type SweepServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SweepService
	basic   *plan.Plan
}

func TestSweepService(t *testing.T) {
	suite.Run(t, new(SweepServiceSuite))
}

func (s *SweepServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSweepService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.basic = s.CreatePlan("basic", types.PlanTierBasic, "100", 30)
}

func (s *SweepServiceSuite) seed(userID string, end time.Time, status types.MembershipStatus, autoRenew bool) string {
	s.CreateUser(userID)
	return seedMembership(&s.BaseServiceTestSuite, userID, s.basic,
		types.AddDays(end, -30), end, status, autoRenew).ID
}

func (s *SweepServiceSuite) TestSweepExpire() {
	yesterday := types.AddDays(s.Today(), -1)
	active := s.seed("user_1", yesterday, types.MembershipStatusActive, false)
	frozen := s.seed("user_2", yesterday, types.MembershipStatusFrozen, false)
	endsToday := s.seed("user_3", s.Today(), types.MembershipStatusActive, false)

	result, err := s.service.SweepExpire(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Equal(SweepExpire, result.Sweep)
	s.Equal("2025-01-01", result.Date)
	s.Equal(2, result.Scanned)
	s.Equal(2, result.Processed)
	s.Zero(result.Failed)

	for _, id := range []string{active, frozen} {
		m, err := s.GetStores().MembershipRepo.Get(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal(types.MembershipStatusExpired, m.Status)
		s.Nil(m.FrozenFrom)
		s.Nil(m.FrozenTo)
	}

	m, err := s.GetStores().MembershipRepo.Get(s.GetContext(), endsToday)
	s.Require().NoError(err)
	s.Equal(types.MembershipStatusActive, m.Status)

	s.Equal([]string{"Membership Expired", "Membership Expired"}, s.GetNotifier().Titles())

	again, err := s.service.SweepExpire(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Zero(again.Scanned)
	s.Zero(again.Processed)
	s.Len(s.GetNotifier().Titles(), 2)
}

func (s *SweepServiceSuite) TestSweepRemind() {
	s.seed("user_1", types.AddDays(s.Today(), 7), types.MembershipStatusActive, false)
	s.seed("user_2", types.AddDays(s.Today(), 6), types.MembershipStatusActive, false)
	s.seed("user_3", types.AddDays(s.Today(), 7), types.MembershipStatusFrozen, false)

	result, err := s.service.SweepRemind(s.GetContext(), s.Today(), 7)
	s.Require().NoError(err)
	s.Equal(1, result.Scanned)
	s.Equal(1, result.Processed)

	s.Equal([]string{"⏰ Membership Expiring Soon"}, s.GetNotifier().Titles())
	s.Len(s.GetNotifier().MemberMessages("user_1"), 1)
	s.Empty(s.GetNotifier().MemberMessages("user_2"))
	s.Empty(s.GetNotifier().MemberMessages("user_3"))
}

func (s *SweepServiceSuite) TestSweepRemindManyMembers() {
	end := types.AddDays(s.Today(), 3)
	for _, id := range []string{"user_a", "user_b", "user_c", "user_d", "user_e", "user_f"} {
		s.seed(id, end, types.MembershipStatusActive, false)
	}

	result, err := s.service.SweepRemind(s.GetContext(), s.Today(), 3)
	s.Require().NoError(err)
	s.Equal(6, result.Processed)
	s.Len(s.GetNotifier().Titles(), 6)
}

func (s *SweepServiceSuite) TestSweepRemindNegativeDays() {
	_, err := s.service.SweepRemind(s.GetContext(), s.Today(), -1)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SweepServiceSuite) TestSweepAutoRenew() {
	old := s.seed("user_1", types.AddDays(s.Today(), -1), types.MembershipStatusExpired, true)

	result, err := s.service.SweepAutoRenew(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Equal(1, result.Scanned)
	s.Equal(1, result.Processed)

	previous, err := s.GetStores().MembershipRepo.Get(s.GetContext(), old)
	s.Require().NoError(err)
	s.False(previous.AutoRenew)

	renewed, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), "user_1")
	s.Require().NoError(err)
	s.NotEqual(old, renewed.ID)
	s.Equal(types.MembershipStatusActive, renewed.Status)
	s.Equal(s.Today(), renewed.StartDate)
	s.Equal(types.AddDays(s.Today(), 30), renewed.EndDate)
	s.True(renewed.AutoRenew)

	s.Equal([]string{"Auto-Renewal Successful"}, s.GetNotifier().Titles())

	again, err := s.service.SweepAutoRenew(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Zero(again.Scanned)
	s.Len(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), "user_1"), 2)
}

func (s *SweepServiceSuite) TestSweepAutoRenewSkipsPendingPayment() {
	old := s.seed("user_1", types.AddDays(s.Today(), -1), types.MembershipStatusExpired, true)
	seedPayment(&s.BaseServiceTestSuite, "user_1", s.basic, types.PaymentStatusPending, s.GetClock().Now())

	result, err := s.service.SweepAutoRenew(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Equal(1, result.Skipped)
	s.Zero(result.Processed)

	previous, err := s.GetStores().MembershipRepo.Get(s.GetContext(), old)
	s.Require().NoError(err)
	s.True(previous.AutoRenew)
	s.Len(s.GetStores().MembershipRepo.ListByUser(s.GetContext(), "user_1"), 1)
}

func (s *SweepServiceSuite) TestSweepAutoRenewWithLiveMembership() {
	old := s.seed("user_1", types.AddDays(s.Today(), -5), types.MembershipStatusExpired, true)
	live := seedMembership(&s.BaseServiceTestSuite, "user_1", s.basic,
		types.AddDays(s.Today(), -4), types.AddDays(s.Today(), 26), types.MembershipStatusActive, false)

	result, err := s.service.SweepAutoRenew(s.GetContext(), s.Today())
	s.Require().NoError(err)
	s.Equal(1, result.Skipped)

	previous, err := s.GetStores().MembershipRepo.Get(s.GetContext(), old)
	s.Require().NoError(err)
	s.False(previous.AutoRenew)

	current, err := s.GetStores().MembershipRepo.GetLiveByUser(s.GetContext(), "user_1")
	s.Require().NoError(err)
	s.Equal(live.ID, current.ID)
	s.Empty(s.GetNotifier().Titles())
}

func (s *SweepServiceSuite) TestSweepExpireStaleSessions() {
	s.CreateUser("user_1")
	now := s.GetClock().Now()
	stale := seedPayment(&s.BaseServiceTestSuite, "user_1", s.basic, types.PaymentStatusPending, now.Add(-25*time.Hour))
	fresh := seedPayment(&s.BaseServiceTestSuite, "user_1", s.basic, types.PaymentStatusPending, now.Add(-time.Hour))
	paid := seedPayment(&s.BaseServiceTestSuite, "user_1", s.basic, types.PaymentStatusPaid, now.Add(-30*time.Hour))

	result, err := s.service.SweepExpireStaleSessions(s.GetContext(), now)
	s.Require().NoError(err)
	s.Equal(1, result.Scanned)
	s.Equal(1, result.Processed)

	expected := map[string]types.PaymentStatus{
		stale.ID: types.PaymentStatusExpired,
		fresh.ID: types.PaymentStatusPending,
		paid.ID:  types.PaymentStatusPaid,
	}
	for id, status := range expected {
		p, err := s.GetStores().PaymentRepo.Get(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal(status, p.Status, id)
	}
}
