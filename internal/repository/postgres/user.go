package postgres

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/domain/user"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/postgres"
)

type userRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewUserRepository(client *postgres.Client, log *logger.Logger) user.Repository {
	return &userRepository{client: client, log: log}
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	var row userRow
	if err := r.client.DB(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("User with ID %s was not found", id).
				WithReportableDetails(map[string]any{"user_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get user with ID %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *userRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	res := r.client.DB(ctx).
		Model(&userRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_customer_id": customerID,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to store payment provider customer").
			WithReportableDetails(map[string]any{"user_id": id}).
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
