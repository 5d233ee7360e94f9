package dto

import (
	"github.com/fitclub/billing/internal/domain/payment"
	"github.com/fitclub/billing/internal/types"
	"github.com/fitclub/billing/internal/validator"
	"github.com/shopspring/decimal"
)

type InitiateCheckoutRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (r *InitiateCheckoutRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type CheckoutResponse struct {
	PaymentID   string              `json:"payment_id"`
	PaymentType types.PaymentType   `json:"payment_type"`
	Status      types.PaymentStatus `json:"status"`
	Amount      decimal.Decimal     `json:"amount" swaggertype:"string"`
	Currency    string              `json:"currency"`
	CheckoutURL string              `json:"checkout_url,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	// Reused is true when a session opened inside the dedup window was returned
	Reused bool `json:"reused"`
}

func NewCheckoutResponse(p *payment.Payment, reused bool) *CheckoutResponse {
	resp := &CheckoutResponse{
		PaymentID:   p.ID,
		PaymentType: p.Type,
		Status:      p.Status,
		Amount:      p.MoneyToPay,
		Currency:    p.Currency,
		Reused:      reused,
	}
	if p.SessionURL != nil {
		resp.CheckoutURL = *p.SessionURL
	}
	if p.SessionID != nil {
		resp.SessionID = *p.SessionID
	}
	return resp
}

// PaymentStatusResponse backs the checkout success page
type PaymentStatusResponse struct {
	PaymentID   string              `json:"payment_id"`
	PaymentType types.PaymentType   `json:"payment_type"`
	Status      types.PaymentStatus `json:"status"`
	Amount      decimal.Decimal     `json:"amount" swaggertype:"string"`
	Currency    string              `json:"currency"`
	Message     string              `json:"message"`
}

type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"event_type,omitempty"`
	Result    string `json:"result"`
}
