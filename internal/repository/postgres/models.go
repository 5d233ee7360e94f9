package postgres

import (
	"time"

	"github.com/fitclub/billing/internal/domain/membership"
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/domain/plan"
	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
)

type planRow struct {
	ID           string          `gorm:"primaryKey;type:varchar(50)"`
	Name         string          `gorm:"type:varchar(255);not null"`
	Code         string          `gorm:"type:varchar(100);not null;uniqueIndex:uniq_plans_code"`
	Description  string          `gorm:"type:text"`
	Tier         string          `gorm:"type:varchar(20);not null"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DurationDays int             `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (planRow) TableName() string { return string(types.TableNamePlans) }

func (r *planRow) toDomain() *plan.Plan {
	return &plan.Plan{
		ID:           r.ID,
		Name:         r.Name,
		Code:         r.Code,
		Description:  r.Description,
		Tier:         types.PlanTier(r.Tier),
		Price:        r.Price,
		DurationDays: r.DurationDays,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func planRowFrom(p *plan.Plan) *planRow {
	return &planRow{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		Tier:         string(p.Tier),
		Price:        p.Price,
		DurationDays: p.DurationDays,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type membershipRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(50)"`
	UserID          string          `gorm:"type:varchar(50);not null;index"`
	PlanID          string          `gorm:"type:varchar(50);not null;index"`
	StartDate       time.Time       `gorm:"type:date;not null"`
	EndDate         time.Time       `gorm:"type:date;not null;index"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	AutoRenew       bool            `gorm:"not null"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	FrozenFrom      *time.Time      `gorm:"type:date"`
	FrozenTo        *time.Time      `gorm:"type:date"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (membershipRow) TableName() string { return string(types.TableNameMemberships) }

func (r *membershipRow) toDomain() *membership.Membership {
	return &membership.Membership{
		ID:              r.ID,
		UserID:          r.UserID,
		PlanID:          r.PlanID,
		StartDate:       types.ToDate(r.StartDate, nil),
		EndDate:         types.ToDate(r.EndDate, nil),
		Status:          types.MembershipStatus(r.Status),
		AutoRenew:       r.AutoRenew,
		PriceAtPurchase: r.PriceAtPurchase,
		FrozenFrom:      toDatePtr(r.FrozenFrom),
		FrozenTo:        toDatePtr(r.FrozenTo),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func membershipRowFrom(m *membership.Membership) *membershipRow {
	return &membershipRow{
		ID:              m.ID,
		UserID:          m.UserID,
		PlanID:          m.PlanID,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		Status:          string(m.Status),
		AutoRenew:       m.AutoRenew,
		PriceAtPurchase: m.PriceAtPurchase,
		FrozenFrom:      m.FrozenFrom,
		FrozenTo:        m.FrozenTo,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

type paymentRow struct {
	ID           string          `gorm:"primaryKey;type:varchar(50)"`
	UserID       string          `gorm:"type:varchar(50);not null;index:idx_payments_user_plan_status,priority:1"`
	PlanID       string          `gorm:"type:varchar(50);not null;index:idx_payments_user_plan_status,priority:2"`
	PaymentType  string          `gorm:"type:varchar(30);not null"`
	Status       string          `gorm:"type:varchar(20);not null;index:idx_payments_user_plan_status,priority:3"`
	MoneyToPay   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	ErrorMessage *string         `gorm:"type:text"`
	SessionID    *string         `gorm:"type:varchar(255);uniqueIndex:uniq_payments_session_id"`
	SessionURL   *string         `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"index"`
	UpdatedAt    time.Time
}

func (paymentRow) TableName() string { return string(types.TableNamePayments) }

func (r *paymentRow) toDomain() *payment.Payment {
	return &payment.Payment{
		ID:           r.ID,
		UserID:       r.UserID,
		PlanID:       r.PlanID,
		Type:         types.PaymentType(r.PaymentType),
		Status:       types.PaymentStatus(r.Status),
		MoneyToPay:   r.MoneyToPay,
		Currency:     r.Currency,
		ErrorMessage: r.ErrorMessage,
		SessionID:    r.SessionID,
		SessionURL:   r.SessionURL,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func paymentRowFrom(p *payment.Payment) *paymentRow {
	return &paymentRow{
		ID:           p.ID,
		UserID:       p.UserID,
		PlanID:       p.PlanID,
		PaymentType:  string(p.Type),
		Status:       string(p.Status),
		MoneyToPay:   p.MoneyToPay,
		Currency:     p.Currency,
		ErrorMessage: p.ErrorMessage,
		SessionID:    p.SessionID,
		SessionURL:   p.SessionURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type userRow struct {
	ID               string  `gorm:"primaryKey;type:varchar(50)"`
	Email            string  `gorm:"type:varchar(255);not null"`
	FirstName        string  `gorm:"type:varchar(150)"`
	LastName         string  `gorm:"type:varchar(150)"`
	StripeCustomerID *string `gorm:"type:varchar(255);uniqueIndex:uniq_users_stripe_customer_id"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (userRow) TableName() string { return string(types.TableNameUsers) }

func (r *userRow) toDomain() *user.User {
	return &user.User{
		ID:               r.ID,
		Email:            r.Email,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		StripeCustomerID: r.StripeCustomerID,
	}
}

func toDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := types.ToDate(*t, nil)
	return &d
}
