package payment

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/types"
)

// Repository defines the interface for payment persistence.
// Status changes are conditional updates returning whether this call made the change.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Payment, error)

	// SetSession stores the checkout session handle of a payment
	SetSession(ctx context.Context, id, sessionID, sessionURL string) error

	// FindReusable returns the newest PENDING payment for (user, plan) created at or after
	// since that already has a checkout session, ErrNotFound if none
	FindReusable(ctx context.Context, userID, planID string, since time.Time) (*Payment, error)
	// ListForPlan returns the payments of (user, plan) created at or after since, newest first
	ListForPlan(ctx context.Context, userID, planID string, since time.Time) ([]*Payment, error)
	// HasPending reports whether the user has any PENDING payment
	HasPending(ctx context.Context, userID string) (bool, error)
	// ListStalePending returns PENDING payments created before the cutoff
	ListStalePending(ctx context.Context, before time.Time) ([]*Payment, error)

	// Transition moves the payment to status `to` if its current status is one of `from`
	Transition(ctx context.Context, id string, from []types.PaymentStatus, to types.PaymentStatus, errorMessage *string) (bool, error)
}
