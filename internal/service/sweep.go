package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/domain/membership"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/notification"
	"github.com/fitclub/billing/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const (
	SweepExpire              = "expire"
	SweepRemind              = "remind"
	SweepAutoRenew           = "auto_renew"
	SweepExpireStaleSessions = "expire_stale_sessions"
)

// SweepService runs the daily maintenance passes over memberships and payments.
// Every pass is safe to run concurrently with itself: state changes are conditional
// updates, so a record is only ever acted on by the run that changed it.
type SweepService interface {
	SweepExpire(ctx context.Context, today time.Time) (*dto.SweepResponse, error)
	SweepRemind(ctx context.Context, today time.Time, daysBefore int) (*dto.SweepResponse, error)
	SweepAutoRenew(ctx context.Context, today time.Time) (*dto.SweepResponse, error)
	SweepExpireStaleSessions(ctx context.Context, now time.Time) (*dto.SweepResponse, error)

	// Today is the current calendar date in the billing timezone
	Today() time.Time
	Now() time.Time
}

type sweepService struct {
	ServiceParams
}

func NewSweepService(params ServiceParams) SweepService {
	return &sweepService{
		ServiceParams: params,
	}
}

func (s *sweepService) Now() time.Time {
	return s.Clock.Now()
}

func (s *sweepService) SweepExpire(ctx context.Context, today time.Time) (*dto.SweepResponse, error) {
	today = types.ToDate(today, nil)
	result := newSweepResponse(SweepExpire, today)

	memberships, err := s.MembershipRepo.ListExpirable(ctx, today)
	if err != nil {
		return nil, err
	}
	result.Scanned = len(memberships)

	for _, m := range memberships {
		ok, err := s.MembershipRepo.MarkExpired(ctx, m.ID)
		if err != nil {
			s.Logger.WithContext(ctx).Errorw("failed to expire membership", "membership_id", m.ID, "error", err)
			result.Failed++
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}

		m.Expire()
		result.Processed++

		u, p := s.lookupParties(ctx, m.UserID, m.PlanID)
		s.Notifier.Notify(ctx, notification.ExpiredMessage(m, p, u))
	}

	s.finish(ctx, result)
	return result, nil
}

func (s *sweepService) SweepRemind(ctx context.Context, today time.Time, daysBefore int) (*dto.SweepResponse, error) {
	if daysBefore < 0 {
		return nil, ierr.NewError("days before cannot be negative").
			WithHint("Days before must be zero or more").
			Mark(ierr.ErrValidation)
	}

	today = types.ToDate(today, nil)
	result := newSweepResponse(SweepRemind, today)

	memberships, err := s.MembershipRepo.ListActiveEndingOn(ctx, types.AddDays(today, daysBefore))
	if err != nil {
		return nil, err
	}
	result.Scanned = len(memberships)

	var sent int64
	p := pool.New().WithMaxGoroutines(max(1, s.Config.Billing.ReminderConcurrency))
	for _, m := range memberships {
		m := m // per-iteration copy; go.mod targets go 1.21 loop semantics
		p.Go(func() {
			u, pl := s.lookupParties(ctx, m.UserID, m.PlanID)
			msg := notification.ReminderMessage(m, pl, u, daysBefore)
			s.Notifier.Notify(ctx, msg)
			s.Notifier.NotifyMember(ctx, u, msg)
			atomic.AddInt64(&sent, 1)
		})
	}
	p.Wait()

	result.Processed = int(sent)
	s.finish(ctx, result)
	return result, nil
}

func (s *sweepService) SweepAutoRenew(ctx context.Context, today time.Time) (*dto.SweepResponse, error) {
	today = types.ToDate(today, nil)
	result := newSweepResponse(SweepAutoRenew, today)

	memberships, err := s.MembershipRepo.ListRenewable(ctx, today)
	if err != nil {
		return nil, err
	}
	result.Scanned = len(memberships)

	for _, old := range memberships {
		renewed, err := s.renew(ctx, old, today)
		if err != nil {
			s.Logger.WithContext(ctx).Errorw("failed to auto renew membership", "membership_id", old.ID, "error", err)
			result.Failed++
			continue
		}
		if renewed == nil {
			result.Skipped++
			continue
		}

		result.Processed++
		u, p := s.lookupParties(ctx, renewed.UserID, renewed.PlanID)
		s.Notifier.Notify(ctx, notification.AutoRenewMessage(renewed, p, u))
	}

	s.finish(ctx, result)
	return result, nil
}

// renew creates the follow-up membership of an expired auto renewing one.
// Returns nil when the record was skipped.
func (s *sweepService) renew(ctx context.Context, old *membership.Membership, today time.Time) (*membership.Membership, error) {
	log := s.Logger.WithContext(ctx)

	pending, err := s.PaymentRepo.HasPending(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if pending {
		log.Infow("skipping auto renewal, user has a pending payment", "membership_id", old.ID, "user_id", old.UserID)
		return nil, nil
	}

	p, err := s.PlanRepo.Get(ctx, old.PlanID)
	if err != nil {
		return nil, err
	}

	var renewed *membership.Membership
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, old.UserID); err != nil {
			return err
		}

		cleared, err := s.MembershipRepo.ClearAutoRenew(ctx, old.ID)
		if err != nil {
			return err
		}
		if !cleared {
			// another run got here first
			return nil
		}

		live, err := s.MembershipRepo.GetLiveByUser(ctx, old.UserID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if live != nil {
			log.Infow("user already has a live membership, clearing stale auto renew only",
				"membership_id", old.ID,
				"live_membership_id", live.ID,
			)
			return nil
		}

		renewed = membership.New(old.UserID, p, today, true)
		return s.MembershipRepo.Create(ctx, renewed)
	})
	if err != nil {
		return nil, err
	}

	if renewed != nil {
		log.Infow("membership auto renewed",
			"previous_membership_id", old.ID,
			"membership_id", renewed.ID,
			"end_date", types.FormatDate(renewed.EndDate),
		)
	}
	return renewed, nil
}

func (s *sweepService) SweepExpireStaleSessions(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	result := newSweepResponse(SweepExpireStaleSessions, types.ToDate(now, s.Location))

	cutoff := now.Add(-s.Config.Billing.SessionTTL)
	payments, err := s.PaymentRepo.ListStalePending(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	result.Scanned = len(payments)

	for _, pay := range payments {
		ok, err := s.PaymentRepo.Transition(ctx, pay.ID,
			[]types.PaymentStatus{types.PaymentStatusPending}, types.PaymentStatusExpired, nil)
		if err != nil {
			s.Logger.WithContext(ctx).Errorw("failed to expire stale payment", "payment_id", pay.ID, "error", err)
			result.Failed++
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}

		result.Processed++
		s.Metrics.IncPaymentTransition(types.PaymentStatusExpired, pay.Currency)
	}

	s.finish(ctx, result)
	return result, nil
}

func newSweepResponse(sweep string, date time.Time) *dto.SweepResponse {
	return &dto.SweepResponse{Sweep: sweep, Date: types.FormatDate(date)}
}

func (s *sweepService) finish(ctx context.Context, result *dto.SweepResponse) {
	s.Metrics.ObserveSweep(result.Sweep, result.Scanned, result.Processed, result.Skipped)
	s.Logger.WithContext(ctx).Infow("sweep finished",
		"sweep", result.Sweep,
		"date", result.Date,
		"scanned", result.Scanned,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
}
