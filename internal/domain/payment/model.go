package payment

import (
	"time"

	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is one charge attempt through the hosted checkout.
// PlanID is always the plan being paid for, both for purchases and upgrade fees.
type Payment struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	PlanID       string              `json:"plan_id"`
	Type         types.PaymentType   `json:"payment_type"`
	Status       types.PaymentStatus `json:"status"`
	MoneyToPay   decimal.Decimal     `json:"money_to_pay" swaggertype:"string"`
	Currency     string              `json:"currency"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	SessionID    *string             `json:"session_id,omitempty"`
	SessionURL   *string             `json:"session_url,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewPending builds a PENDING payment
func NewPending(userID, planID string, paymentType types.PaymentType, amount decimal.Decimal, currency string) *Payment {
	return &Payment{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		UserID:     userID,
		PlanID:     planID,
		Type:       paymentType,
		Status:     types.PaymentStatusPending,
		MoneyToPay: types.RoundToCurrencyPrecision(amount, currency),
		Currency:   currency,
	}
}

// HasSession reports whether a checkout session has been opened for the payment
func (p *Payment) HasSession() bool {
	return p.SessionID != nil && *p.SessionID != "" && p.SessionURL != nil && *p.SessionURL != ""
}

// Metadata is attached to the checkout session and echoed back by provider events
func (p *Payment) Metadata() map[string]string {
	return map[string]string{
		MetadataPaymentID: p.ID,
		MetadataUserID:    p.UserID,
	}
}

const (
	MetadataPaymentID = "payment_id"
	MetadataUserID    = "user_id"
)
