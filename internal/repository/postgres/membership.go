package postgres

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/postgres"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type membershipRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewMembershipRepository(client *postgres.Client, log *logger.Logger) membership.Repository {
	return &membershipRepository{client: client, log: log}
}

var liveStatuses = lo.Map(types.LiveMembershipStatuses, func(s types.MembershipStatus, _ int) string {
	return string(s)
})

func (r *membershipRepository) Create(ctx context.Context, m *membership.Membership) error {
	span := StartRepositorySpan(ctx, "membership", "create", map[string]interface{}{
		"membership_id": m.ID,
		"user_id":       m.UserID,
	})
	defer FinishSpan(span)

	r.log.Debugw("creating membership",
		"membership_id", m.ID,
		"user_id", m.UserID,
		"plan_id", m.PlanID,
	)

	row := membershipRowFrom(m)
	if err := r.client.DB(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		return r.translateWriteError(err, m)
	}

	m.CreatedAt = row.CreatedAt
	m.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, id string) (*membership.Membership, error) {
	var row membershipRow
	if err := r.client.DB(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Membership with ID %s was not found", id).
				WithReportableDetails(map[string]any{"membership_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get membership with ID %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *membershipRepository) Update(ctx context.Context, m *membership.Membership) error {
	span := StartRepositorySpan(ctx, "membership", "update", map[string]interface{}{"membership_id": m.ID})
	defer FinishSpan(span)

	now := time.Now().UTC()
	res := r.client.DB(ctx).
		Model(&membershipRow{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"plan_id":           m.PlanID,
			"start_date":        m.StartDate,
			"end_date":          m.EndDate,
			"status":            string(m.Status),
			"auto_renew":        m.AutoRenew,
			"price_at_purchase": m.PriceAtPurchase,
			"frozen_from":       m.FrozenFrom,
			"frozen_to":         m.FrozenTo,
			"updated_at":        now,
		})
	if res.Error != nil {
		SetSpanError(span, res.Error)
		return r.translateWriteError(res.Error, m)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("membership not found").
			WithHintf("Membership with ID %s was not found", m.ID).
			WithReportableDetails(map[string]any{"membership_id": m.ID}).
			Mark(ierr.ErrNotFound)
	}

	m.UpdatedAt = now
	return nil
}

func (r *membershipRepository) GetLiveByUser(ctx context.Context, userID string) (*membership.Membership, error) {
	var row membershipRow
	err := r.client.DB(ctx).
		Where("user_id = ? AND status IN ?", userID, liveStatuses).
		Take(&row).Error
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("User has no active membership").
				WithReportableDetails(map[string]any{"user_id": userID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get active membership").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *membershipRepository) ListExpirable(ctx context.Context, today time.Time) ([]*membership.Membership, error) {
	return r.list(ctx, "expirable", func(db *gorm.DB) *gorm.DB {
		return db.Where("status IN ? AND end_date < ?::date", liveStatuses, types.FormatDate(today))
	})
}

func (r *membershipRepository) ListActiveEndingOn(ctx context.Context, date time.Time) ([]*membership.Membership, error) {
	return r.list(ctx, "ending_on", func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND end_date = ?::date", string(types.MembershipStatusActive), types.FormatDate(date))
	})
}

func (r *membershipRepository) ListRenewable(ctx context.Context, today time.Time) ([]*membership.Membership, error) {
	return r.list(ctx, "renewable", func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND auto_renew = TRUE AND end_date < ?::date",
			string(types.MembershipStatusExpired), types.FormatDate(today))
	})
}

func (r *membershipRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	res := r.client.DB(ctx).
		Model(&membershipRow{}).
		Where("id = ? AND status IN ?", id, liveStatuses).
		Updates(map[string]interface{}{
			"status":      string(types.MembershipStatusExpired),
			"frozen_from": nil,
			"frozen_to":   nil,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, ierr.WithError(res.Error).
			WithHint("Failed to expire membership").
			WithReportableDetails(map[string]any{"membership_id": id}).
			Mark(ierr.ErrDatabase)
	}
	return res.RowsAffected == 1, nil
}

func (r *membershipRepository) ClearAutoRenew(ctx context.Context, id string) (bool, error) {
	res := r.client.DB(ctx).
		Model(&membershipRow{}).
		Where("id = ? AND auto_renew = TRUE", id).
		Updates(map[string]interface{}{
			"auto_renew": false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, ierr.WithError(res.Error).
			WithHint("Failed to update membership auto renew").
			WithReportableDetails(map[string]any{"membership_id": id}).
			Mark(ierr.ErrDatabase)
	}
	return res.RowsAffected == 1, nil
}

func (r *membershipRepository) list(ctx context.Context, name string, scope func(*gorm.DB) *gorm.DB) ([]*membership.Membership, error) {
	span := StartRepositorySpan(ctx, "membership", "list_"+name, nil)
	defer FinishSpan(span)

	var rows []membershipRow
	if err := r.client.DB(ctx).Scopes(scope).Order("end_date ASC, id ASC").Find(&rows).Error; err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHintf("Failed to list %s memberships", name).
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(rows, func(row membershipRow, _ int) *membership.Membership {
		return row.toDomain()
	}), nil
}

func (r *membershipRepository) translateWriteError(err error, m *membership.Membership) error {
	if postgres.IsUniqueViolation(err, liveMembershipIndex) {
		return ierr.WithError(err).
			WithHint("User already has an active or frozen membership").
			WithReportableDetails(map[string]any{"user_id": m.UserID}).
			Mark(ierr.ErrAlreadyExists)
	}
	if postgres.IsForeignKeyViolation(err) {
		return ierr.WithError(err).
			WithHintf("Plan with ID %s was not found", m.PlanID).
			WithReportableDetails(map[string]any{"plan_id": m.PlanID}).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHint("Failed to save membership").
		WithReportableDetails(map[string]any{"membership_id": m.ID}).
		Mark(ierr.ErrDatabase)
}
