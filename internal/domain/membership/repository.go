package membership

import (
	"context"
	"time"
)

// Repository defines the interface for membership persistence.
// Status changes driven by sweeps are conditional updates: they report whether this
// call performed the transition, so overlapping runs never act twice on one record.
type Repository interface {
	// Create fails with ErrAlreadyExists when the user already holds an ACTIVE or FROZEN membership
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, id string) (*Membership, error)
	Update(ctx context.Context, m *Membership) error

	// GetLiveByUser returns the user's ACTIVE or FROZEN membership, ErrNotFound if none
	GetLiveByUser(ctx context.Context, userID string) (*Membership, error)

	// ListExpirable returns ACTIVE or FROZEN memberships whose end date is before today
	ListExpirable(ctx context.Context, today time.Time) ([]*Membership, error)
	// ListActiveEndingOn returns ACTIVE memberships whose end date equals date
	ListActiveEndingOn(ctx context.Context, date time.Time) ([]*Membership, error)
	// ListRenewable returns EXPIRED memberships with auto renew on whose end date is before today
	ListRenewable(ctx context.Context, today time.Time) ([]*Membership, error)

	// MarkExpired moves an ACTIVE or FROZEN membership to EXPIRED. Returns false if it was not live anymore.
	MarkExpired(ctx context.Context, id string) (bool, error)
	// ClearAutoRenew turns auto renew off. Returns false if it was already off.
	ClearAutoRenew(ctx context.Context, id string) (bool, error)
}
