package service

import (
	"context"

	"github.com/fitclub/billing/internal/api/dto"
	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/proration"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/notification"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
)

// MembershipService drives the membership lifecycle: purchase, freeze, resume and upgrade
type MembershipService interface {
	Purchase(ctx context.Context, userID string, req dto.PurchaseMembershipRequest) (*dto.PurchaseMembershipResponse, error)
	GetMembership(ctx context.Context, userID, id string) (*dto.MembershipResponse, error)
	Freeze(ctx context.Context, userID, id string, req dto.FreezeMembershipRequest) (*dto.MembershipResponse, error)
	Resume(ctx context.Context, userID, id string) (*dto.MembershipResponse, error)
	Upgrade(ctx context.Context, userID, id string, req dto.UpgradeMembershipRequest) (*dto.UpgradeMembershipResponse, error)

	// UpsertFromPayment applies a PAID payment to the user's membership. Runs inside the
	// caller's transaction. Returns nil when the paid plan no longer exists.
	UpsertFromPayment(ctx context.Context, pay *payment.Payment) (*membership.Membership, error)
}

type membershipService struct {
	ServiceParams
}

func NewMembershipService(params ServiceParams) MembershipService {
	return &membershipService{
		ServiceParams: params,
	}
}

func (s *membershipService) Purchase(ctx context.Context, userID string, req dto.PurchaseMembershipRequest) (*dto.PurchaseMembershipResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var m *membership.Membership
	var pay *payment.Payment

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, userID); err != nil {
			return err
		}

		live, err := s.MembershipRepo.GetLiveByUser(ctx, userID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if live != nil {
			return ierr.NewError("user already has a live membership").
				WithHint("You already have an active or frozen membership").
				WithReportableDetails(map[string]any{
					"membership_id": live.ID,
					"status":        live.Status,
				}).
				Mark(ierr.ErrAlreadyExists)
		}

		m = membership.New(userID, p, today, req.AutoRenew)
		if err := s.MembershipRepo.Create(ctx, m); err != nil {
			return err
		}

		pay = payment.NewPending(userID, p.ID, types.PaymentTypeMembershipPurchase, p.Price, s.currency())
		return s.PaymentRepo.Create(ctx, pay)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncPaymentCreated(pay.Type, pay.Currency)
	s.Logger.WithContext(ctx).Infow("membership purchased",
		"membership_id", m.ID,
		"plan_id", p.ID,
		"payment_id", pay.ID,
	)

	// the membership stays ACTIVE when the session cannot be opened, the payment is FAILED
	pay, err = NewPaymentService(s.ServiceParams).OpenSession(ctx, pay)
	if err != nil {
		return nil, err
	}

	return &dto.PurchaseMembershipResponse{
		Membership:  &dto.MembershipResponse{Membership: m, Plan: p},
		PaymentID:   pay.ID,
		CheckoutURL: lo.FromPtr(pay.SessionURL),
	}, nil
}

func (s *membershipService) GetMembership(ctx context.Context, userID, id string) (*dto.MembershipResponse, error) {
	m, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, m.PlanID)
	if err != nil {
		return nil, err
	}

	return &dto.MembershipResponse{Membership: m, Plan: p}, nil
}

func (s *membershipService) Freeze(ctx context.Context, userID, id string, req dto.FreezeMembershipRequest) (*dto.MembershipResponse, error) {
	from, to, err := req.Dates()
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var m *membership.Membership

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, userID); err != nil {
			return err
		}

		m, err = s.getOwned(ctx, userID, id)
		if err != nil {
			return err
		}

		if err := m.Freeze(from, to, today); err != nil {
			return err
		}

		return s.MembershipRepo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("membership frozen",
		"membership_id", m.ID,
		"frozen_from", types.FormatDate(from),
		"frozen_to", types.FormatDate(to),
		"end_date", types.FormatDate(m.EndDate),
	)

	u, p := s.lookupParties(ctx, m.UserID, m.PlanID)
	s.Notifier.Notify(ctx, notification.FrozenMessage(m, p, u))

	return &dto.MembershipResponse{Membership: m, Plan: p}, nil
}

func (s *membershipService) Resume(ctx context.Context, userID, id string) (*dto.MembershipResponse, error) {
	var m *membership.Membership

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, userID); err != nil {
			return err
		}

		var err error
		m, err = s.getOwned(ctx, userID, id)
		if err != nil {
			return err
		}

		if err := m.Resume(); err != nil {
			return err
		}

		return s.MembershipRepo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("membership resumed", "membership_id", m.ID, "end_date", types.FormatDate(m.EndDate))

	p, err := s.PlanRepo.Get(ctx, m.PlanID)
	if err != nil {
		return nil, err
	}

	return &dto.MembershipResponse{Membership: m, Plan: p}, nil
}

func (s *membershipService) Upgrade(ctx context.Context, userID, id string, req dto.UpgradeMembershipRequest) (*dto.UpgradeMembershipResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	newPlan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	var m *membership.Membership
	var pay *payment.Payment
	var cost *proration.Result

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockUser(ctx, userID); err != nil {
			return err
		}

		m, err = s.getOwned(ctx, userID, id)
		if err != nil {
			return err
		}

		if err := m.CanUpgrade(); err != nil {
			return err
		}

		currentPlan, err := s.PlanRepo.Get(ctx, m.PlanID)
		if err != nil {
			return err
		}

		cost, err = s.Calculator.ComputeUpgradeCost(proration.UpgradeParams{
			Current:     m,
			CurrentPlan: currentPlan,
			NewPlan:     newPlan,
			Today:       today,
		})
		if err != nil {
			return err
		}

		if cost.TierMismatch {
			s.Logger.WithContext(ctx).Warnw("upgrade to a more expensive plan on a lower tier",
				"membership_id", m.ID,
				"current_plan_id", currentPlan.ID,
				"current_tier", currentPlan.Tier,
				"new_plan_id", newPlan.ID,
				"new_tier", newPlan.Tier,
			)
		}

		m.ApplyUpgrade(newPlan)
		if err := s.MembershipRepo.Update(ctx, m); err != nil {
			return err
		}

		pay = payment.NewPending(userID, newPlan.ID, cost.Type, cost.Amount, s.currency())
		if pay.MoneyToPay.IsZero() {
			// the credit covers the new plan, nothing to collect
			pay.Status = types.PaymentStatusPaid
		}
		return s.PaymentRepo.Create(ctx, pay)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncPaymentCreated(pay.Type, pay.Currency)
	s.Logger.WithContext(ctx).Infow("membership upgraded",
		"membership_id", m.ID,
		"plan_id", newPlan.ID,
		"payment_id", pay.ID,
		"amount", pay.MoneyToPay.String(),
		"credit", cost.Credit.String(),
		"remaining_days", cost.RemainingDays,
	)

	if pay.Status == types.PaymentStatusPending {
		pay, err = NewPaymentService(s.ServiceParams).OpenSession(ctx, pay)
		if err != nil {
			return nil, err
		}
	} else {
		s.Metrics.IncPaymentTransition(pay.Status, pay.Currency)
		s.announcePaid(ctx, pay, m)
	}

	return &dto.UpgradeMembershipResponse{
		Membership:    &dto.MembershipResponse{Membership: m, Plan: newPlan},
		PaymentID:     pay.ID,
		PaymentStatus: pay.Status,
		Amount:        pay.MoneyToPay,
		Credit:        cost.Credit,
		CheckoutURL:   lo.FromPtr(pay.SessionURL),
	}, nil
}

func (s *membershipService) UpsertFromPayment(ctx context.Context, pay *payment.Payment) (*membership.Membership, error) {
	p, err := s.PlanRepo.Get(ctx, pay.PlanID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.WithContext(ctx).Errorf("plan %s not found", pay.PlanID)
			return nil, nil
		}
		return nil, err
	}

	if err := s.lockUser(ctx, pay.UserID); err != nil {
		return nil, err
	}

	live, err := s.MembershipRepo.GetLiveByUser(ctx, pay.UserID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if live != nil {
		if pay.Type == types.PaymentTypeUpgradeFee && live.PlanID != p.ID {
			return s.applyPaidUpgrade(ctx, live, p, pay)
		}
		return s.syncPlan(ctx, live, p)
	}

	m := membership.New(pay.UserID, p, s.Today(), false)
	if err := s.MembershipRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("membership created from payment",
		"membership_id", m.ID,
		"payment_id", pay.ID,
	)
	return m, nil
}

// applyPaidUpgrade moves a live membership onto the plan of a settled upgrade fee,
// restarting its term from the original start date.
func (s *membershipService) applyPaidUpgrade(ctx context.Context, m *membership.Membership, p *plan.Plan, pay *payment.Payment) (*membership.Membership, error) {
	previousPlanID := m.PlanID
	m.ApplyUpgrade(p)
	if err := s.MembershipRepo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("membership upgraded from payment",
		"membership_id", m.ID,
		"payment_id", pay.ID,
		"previous_plan_id", previousPlanID,
		"plan_id", p.ID,
		"end_date", m.EndDate,
	)
	return m, nil
}

// syncPlan points a live membership at the paid plan. Dates are left alone.
func (s *membershipService) syncPlan(ctx context.Context, m *membership.Membership, p *plan.Plan) (*membership.Membership, error) {
	if m.PlanID == p.ID && m.PriceAtPurchase.Equal(p.Price) {
		return m, nil
	}

	m.PlanID = p.ID
	m.PriceAtPurchase = p.Price
	if err := s.MembershipRepo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// getOwned loads a membership of userID. Other users' memberships are reported as missing.
func (s *membershipService) getOwned(ctx context.Context, userID, id string) (*membership.Membership, error) {
	if id == "" {
		return nil, ierr.NewError("membership ID is required").
			WithHint("Please provide a valid membership ID").
			Mark(ierr.ErrValidation)
	}

	m, err := s.MembershipRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if m.UserID != userID {
		return nil, ierr.NewError("membership not found").
			WithHintf("Membership with ID %s was not found", id).
			WithReportableDetails(map[string]any{"membership_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return m, nil
}
