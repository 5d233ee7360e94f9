package postgres

import (
	"context"
	"time"

	"github.com/fitclub/billing/internal/domain/payment"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/postgres"
	"github.com/fitclub/billing/internal/types"
	"github.com/samber/lo"
)

type paymentRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewPaymentRepository(client *postgres.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	span := StartRepositorySpan(ctx, "payment", "create", map[string]interface{}{
		"payment_id": p.ID,
		"user_id":    p.UserID,
	})
	defer FinishSpan(span)

	r.log.Debugw("creating payment",
		"payment_id", p.ID,
		"user_id", p.UserID,
		"plan_id", p.PlanID,
		"payment_type", p.Type,
		"amount", p.MoneyToPay.String(),
	)

	row := paymentRowFrom(p)
	if err := r.client.DB(ctx).Create(row).Error; err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Payment already exists").
				WithReportableDetails(map[string]any{"payment_id": p.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			WithReportableDetails(map[string]any{"payment_id": p.ID}).
			Mark(ierr.ErrDatabase)
	}

	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var row paymentRow
	if err := r.client.DB(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment with ID %s was not found", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get payment with ID %s", id).
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*payment.Payment, error) {
	var row paymentRow
	if err := r.client.DB(ctx).Where("session_id = ?", sessionID).Take(&row).Error; err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("Payment for this checkout session was not found").
				WithReportableDetails(map[string]any{"session_id": sessionID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment by session").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) SetSession(ctx context.Context, id, sessionID, sessionURL string) error {
	res := r.client.DB(ctx).
		Model(&paymentRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"session_id":  sessionID,
			"session_url": sessionURL,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return ierr.WithError(res.Error).
			WithHint("Failed to store checkout session").
			WithReportableDetails(map[string]any{"payment_id": id, "session_id": sessionID}).
			Mark(ierr.ErrDatabase)
	}
	if res.RowsAffected == 0 {
		return ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *paymentRepository) FindReusable(ctx context.Context, userID, planID string, since time.Time) (*payment.Payment, error) {
	var row paymentRow
	err := r.client.DB(ctx).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, string(types.PaymentStatusPending)).
		Where("session_id IS NOT NULL AND session_url IS NOT NULL AND created_at >= ?", since).
		Order("created_at DESC").
		Limit(1).
		Take(&row).Error
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("No reusable checkout found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to look up pending checkout").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *paymentRepository) ListForPlan(ctx context.Context, userID, planID string, since time.Time) ([]*payment.Payment, error) {
	var rows []paymentRow
	err := r.client.DB(ctx).
		Where("user_id = ? AND plan_id = ? AND created_at >= ?", userID, planID, since).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments for plan").
			WithReportableDetails(map[string]any{"user_id": userID, "plan_id": planID}).
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(rows, func(row paymentRow, _ int) *payment.Payment {
		return row.toDomain()
	}), nil
}

func (r *paymentRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.client.DB(ctx).
		Model(&paymentRow{}).
		Where("user_id = ? AND status = ?", userID, string(types.PaymentStatusPending)).
		Count(&count).Error
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check pending payments").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}

func (r *paymentRepository) ListStalePending(ctx context.Context, before time.Time) ([]*payment.Payment, error) {
	var rows []paymentRow
	err := r.client.DB(ctx).
		Where("status = ? AND created_at < ?", string(types.PaymentStatusPending), before).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list stale payments").
			Mark(ierr.ErrDatabase)
	}
	return lo.Map(rows, func(row paymentRow, _ int) *payment.Payment {
		return row.toDomain()
	}), nil
}

func (r *paymentRepository) Transition(ctx context.Context, id string, from []types.PaymentStatus, to types.PaymentStatus, errorMessage *string) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(to),
		"updated_at": time.Now().UTC(),
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}

	fromStatuses := lo.Map(from, func(s types.PaymentStatus, _ int) string { return string(s) })
	res := r.client.DB(ctx).
		Model(&paymentRow{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, ierr.WithError(res.Error).
			WithHint("Failed to update payment status").
			WithReportableDetails(map[string]any{
				"payment_id": id,
				"to":         to,
			}).
			Mark(ierr.ErrDatabase)
	}
	return res.RowsAffected == 1, nil
}
