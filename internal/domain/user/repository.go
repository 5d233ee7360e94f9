package user

import "context"

// Repository defines the interface for user persistence
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	// SetStripeCustomerID records the provider customer once created
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}
