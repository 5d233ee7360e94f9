package testutil

import (
	"context"

	"github.com/fitclub/billing/internal/domain/user"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/samber/lo"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func copyUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	copied := *u
	if u.StripeCustomerID != nil {
		copied.StripeCustomerID = lo.ToPtr(*u.StripeCustomerID)
	}
	return &copied
}

// Create seeds a user. Users are owned by the identity service so this is test only.
func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	return s.InMemoryStore.Create(ctx, u.ID, copyUser(u))
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	_, err := s.InMemoryStore.Mutate(ctx, id, func(u *user.User) bool {
		u.StripeCustomerID = lo.ToPtr(customerID)
		return true
	})
	return err
}
