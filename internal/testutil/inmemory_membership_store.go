package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryMembershipStore implements membership.Repository, including the
// one live membership per user constraint
type InMemoryMembershipStore struct {
	*InMemoryStore[*membership.Membership]
	// writeMu serializes the uniqueness check with the write
	writeMu sync.Mutex
	// Now stamps created_at and updated_at
	Now func() time.Time
}

func NewInMemoryMembershipStore() *InMemoryMembershipStore {
	return &InMemoryMembershipStore{
		InMemoryStore: NewInMemoryStore[*membership.Membership](),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func copyMembership(m *membership.Membership) *membership.Membership {
	if m == nil {
		return nil
	}
	copied := *m
	if m.FrozenFrom != nil {
		copied.FrozenFrom = lo.ToPtr(*m.FrozenFrom)
	}
	if m.FrozenTo != nil {
		copied.FrozenTo = lo.ToPtr(*m.FrozenTo)
	}
	return &copied
}

func (s *InMemoryMembershipStore) liveConflict(ctx context.Context, m *membership.Membership) error {
	if !m.Status.IsLive() {
		return nil
	}
	others, _ := s.InMemoryStore.List(ctx, m, func(_ context.Context, other *membership.Membership, filter interface{}) bool {
		candidate := filter.(*membership.Membership)
		return other.ID != candidate.ID && other.UserID == candidate.UserID && other.Status.IsLive()
	}, nil)
	if len(others) > 0 {
		return ierr.NewError("user already has a live membership").
			WithHint("You already have an active or frozen membership").
			WithReportableDetails(map[string]interface{}{"user_id": m.UserID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryMembershipStore) Create(ctx context.Context, m *membership.Membership) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.liveConflict(ctx, m); err != nil {
		return err
	}

	now := s.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	return s.InMemoryStore.Create(ctx, m.ID, copyMembership(m))
}

func (s *InMemoryMembershipStore) Get(ctx context.Context, id string) (*membership.Membership, error) {
	m, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("membership not found").
			WithHintf("Membership with ID %s was not found", id).
			WithReportableDetails(map[string]interface{}{"membership_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyMembership(m), nil
}

func (s *InMemoryMembershipStore) Update(ctx context.Context, m *membership.Membership) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.liveConflict(ctx, m); err != nil {
		return err
	}

	m.UpdatedAt = s.Now()
	if err := s.InMemoryStore.Update(ctx, m.ID, copyMembership(m)); err != nil {
		return ierr.NewError("membership not found").
			WithHintf("Membership with ID %s was not found", m.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryMembershipStore) GetLiveByUser(ctx context.Context, userID string) (*membership.Membership, error) {
	items := s.list(ctx, func(m *membership.Membership) bool {
		return m.UserID == userID && m.Status.IsLive()
	})
	if len(items) == 0 {
		return nil, ierr.NewError("no live membership").
			WithHint("No active membership found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (s *InMemoryMembershipStore) ListExpirable(ctx context.Context, today time.Time) ([]*membership.Membership, error) {
	return s.list(ctx, func(m *membership.Membership) bool {
		return m.Status.IsLive() && m.EndDate.Before(today)
	}), nil
}

func (s *InMemoryMembershipStore) ListActiveEndingOn(ctx context.Context, date time.Time) ([]*membership.Membership, error) {
	return s.list(ctx, func(m *membership.Membership) bool {
		return m.Status == types.MembershipStatusActive && m.EndDate.Equal(date)
	}), nil
}

func (s *InMemoryMembershipStore) ListRenewable(ctx context.Context, today time.Time) ([]*membership.Membership, error) {
	return s.list(ctx, func(m *membership.Membership) bool {
		return m.Status == types.MembershipStatusExpired && m.AutoRenew && m.EndDate.Before(today)
	}), nil
}

func (s *InMemoryMembershipStore) MarkExpired(ctx context.Context, id string) (bool, error) {
	return s.casUpdate(ctx, id, func(m *membership.Membership) bool {
		if !m.Status.IsLive() {
			return false
		}
		m.Expire()
		m.UpdatedAt = s.Now()
		return true
	})
}

func (s *InMemoryMembershipStore) ClearAutoRenew(ctx context.Context, id string) (bool, error) {
	return s.casUpdate(ctx, id, func(m *membership.Membership) bool {
		if !m.AutoRenew {
			return false
		}
		m.AutoRenew = false
		m.UpdatedAt = s.Now()
		return true
	})
}

// casUpdate behaves like a conditional UPDATE: an unknown id changes nothing
func (s *InMemoryMembershipStore) casUpdate(ctx context.Context, id string, fn func(m *membership.Membership) bool) (bool, error) {
	ok, err := s.InMemoryStore.Mutate(ctx, id, fn)
	if ierr.IsNotFound(err) {
		return false, nil
	}
	return ok, err
}

// ListByUser returns every membership of a user, oldest first. Test helper.
func (s *InMemoryMembershipStore) ListByUser(ctx context.Context, userID string) []*membership.Membership {
	return s.list(ctx, func(m *membership.Membership) bool { return m.UserID == userID })
}

func (s *InMemoryMembershipStore) list(ctx context.Context, match func(m *membership.Membership) bool) []*membership.Membership {
	items, _ := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, m *membership.Membership, _ interface{}) bool { return match(m) },
		func(a, b *membership.Membership) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	)
	return lo.Map(items, func(m *membership.Membership, _ int) *membership.Membership { return copyMembership(m) })
}
