package testutil

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/domain/payment"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
	// Now stamps created_at, so tests can place payments inside or outside time windows
	Now func() time.Time
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	copied := *p
	if p.ErrorMessage != nil {
		copied.ErrorMessage = lo.ToPtr(*p.ErrorMessage)
	}
	if p.SessionID != nil {
		copied.SessionID = lo.ToPtr(*p.SessionID)
	}
	if p.SessionURL != nil {
		copied.SessionURL = lo.ToPtr(*p.SessionURL)
	}
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.Now()
	}
	p.UpdatedAt = p.CreatedAt
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			WithReportableDetails(map[string]interface{}{"payment_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) GetBySessionID(ctx context.Context, sessionID string) (*payment.Payment, error) {
	items := s.list(ctx, func(p *payment.Payment) bool {
		return p.SessionID != nil && *p.SessionID == sessionID
	})
	if len(items) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHint("No payment found for this checkout session").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryPaymentStore) SetSession(ctx context.Context, id, sessionID, sessionURL string) error {
	_, err := s.InMemoryStore.Mutate(ctx, id, func(p *payment.Payment) bool {
		p.SessionID = lo.ToPtr(sessionID)
		p.SessionURL = lo.ToPtr(sessionURL)
		p.UpdatedAt = s.Now()
		return true
	})
	return err
}

func (s *InMemoryPaymentStore) FindReusable(ctx context.Context, userID, planID string, since time.Time) (*payment.Payment, error) {
	items := s.list(ctx, func(p *payment.Payment) bool {
		return p.UserID == userID &&
			p.PlanID == planID &&
			p.Status == types.PaymentStatusPending &&
			p.HasSession() &&
			!p.CreatedAt.Before(since)
	})
	if len(items) == 0 {
		return nil, ierr.NewError("no reusable payment").Mark(ierr.ErrNotFound)
	}
	return items[len(items)-1], nil
}

func (s *InMemoryPaymentStore) ListForPlan(ctx context.Context, userID, planID string, since time.Time) ([]*payment.Payment, error) {
	items := s.list(ctx, func(p *payment.Payment) bool {
		return p.UserID == userID && p.PlanID == planID && !p.CreatedAt.Before(since)
	})
	return lo.Reverse(items), nil
}

func (s *InMemoryPaymentStore) HasPending(ctx context.Context, userID string) (bool, error) {
	items := s.list(ctx, func(p *payment.Payment) bool {
		return p.UserID == userID && p.Status == types.PaymentStatusPending
	})
	return len(items) > 0, nil
}

func (s *InMemoryPaymentStore) ListStalePending(ctx context.Context, before time.Time) ([]*payment.Payment, error) {
	return s.list(ctx, func(p *payment.Payment) bool {
		return p.Status == types.PaymentStatusPending && p.CreatedAt.Before(before)
	}), nil
}

func (s *InMemoryPaymentStore) Transition(ctx context.Context, id string, from []types.PaymentStatus, to types.PaymentStatus, errorMessage *string) (bool, error) {
	ok, err := s.InMemoryStore.Mutate(ctx, id, func(p *payment.Payment) bool {
		if !lo.Contains(from, p.Status) {
			return false
		}
		p.Status = to
		if errorMessage != nil {
			p.ErrorMessage = lo.ToPtr(*errorMessage)
		}
		p.UpdatedAt = s.Now()
		return true
	})
	if ierr.IsNotFound(err) {
		// an unknown id updates no rows
		return false, nil
	}
	return ok, err
}

// ListByUser returns every payment of a user, oldest first. Test helper.
func (s *InMemoryPaymentStore) ListByUser(ctx context.Context, userID string) []*payment.Payment {
	return s.list(ctx, func(p *payment.Payment) bool { return p.UserID == userID })
}

func (s *InMemoryPaymentStore) list(ctx context.Context, match func(p *payment.Payment) bool) []*payment.Payment {
	items, _ := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, p *payment.Payment, _ interface{}) bool { return match(p) },
		func(a, b *payment.Payment) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	)
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment { return copyPayment(p) })
}
