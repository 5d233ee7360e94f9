package stripe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/types"
	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// CheckoutProvider is the hosted checkout used to collect payments
type CheckoutProvider interface {
	// GetOrCreateCustomer creates a provider customer for the user. Callers persist the id.
	GetOrCreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	// CreateCheckoutSession opens a one-off payment session. It is never retried here.
	CreateCheckoutSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	// ParseEvent verifies the webhook signature and decodes the event
	ParseEvent(payload []byte, signature string) (*Event, error)
}

type CustomerRequest struct {
	UserID string
	Email  string
	Name   string
	// ExistingID is the customer id already stored for the user, if any
	ExistingID string
}

type CreateSessionRequest struct {
	CustomerID  string
	Amount      decimal.Decimal
	Currency    string
	ProductName string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
	// IdempotencyKey makes a replayed request return the same session
	IdempotencyKey string
	ExpiresAt      *time.Time
}

type Session struct {
	ID  string
	URL string
}

type Client struct {
	api           *client.API
	webhookSecret string
	logger        *logger.Logger
}

func NewClient(cfg *config.Configuration, log *logger.Logger) CheckoutProvider {
	timeout := cfg.Stripe.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backends := stripego.NewBackendsWithConfig(&stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     log,
	})

	return &Client{
		api:           client.New(cfg.Stripe.SecretKey, backends),
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        log,
	}
}

func (c *Client) GetOrCreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}

	params := &stripego.CustomerParams{
		Email: stripego.String(req.Email),
		Name:  stripego.String(req.Name),
		Metadata: map[string]string{
			"user_id": req.UserID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer-" + req.UserID)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		c.logger.Errorw("failed to create stripe customer", "user_id", req.UserID, "error", err)
		return "", ierr.WithError(err).
			WithHint("Failed to register customer with the payment provider").
			WithReportableDetails(map[string]any{"user_id": req.UserID}).
			Mark(ierr.ErrCheckoutCreationFailed)
	}

	c.logger.Infow("stripe customer created", "user_id", req.UserID, "stripe_customer_id", cus.ID)
	return cus.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	amount := types.ToMinorUnits(req.Amount, req.Currency)
	if amount <= 0 {
		return nil, ierr.NewError("checkout amount must be positive").
			WithHint("Nothing to pay for this checkout").
			WithReportableDetails(map[string]any{"amount": req.Amount.String()}).
			Mark(ierr.ErrValidation)
	}

	params := &stripego.CheckoutSessionParams{
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		SuccessURL:         stripego.String(req.SuccessURL),
		CancelURL:          stripego.String(req.CancelURL),
		Metadata:           req.Metadata,
		PaymentIntentData: &stripego.CheckoutSessionPaymentIntentDataParams{
			// copied so payment_intent events carry the same references
			Metadata: req.Metadata,
		},
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(req.Currency),
					UnitAmount: stripego.Int64(amount),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripego.String(req.ProductName),
						Description: stripego.String(req.Description),
					},
				},
				Quantity: stripego.Int64(1),
			},
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripego.String(req.CustomerID)
	}
	if req.ExpiresAt != nil {
		params.ExpiresAt = stripego.Int64(req.ExpiresAt.Unix())
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		c.logger.Errorw("failed to create stripe checkout session",
			"payment_id", req.Metadata["payment_id"],
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint(providerMessage(err)).
			WithReportableDetails(map[string]any{"payment_id": req.Metadata["payment_id"]}).
			Mark(ierr.ErrCheckoutCreationFailed)
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// providerMessage extracts the human readable part of a stripe error
func providerMessage(err error) string {
	if stripeErr, ok := err.(*stripego.Error); ok && stripeErr.Msg != "" {
		return fmt.Sprintf("Payment provider error: %s", stripeErr.Msg)
	}
	return "Payment provider is unavailable, please try again later"
}
