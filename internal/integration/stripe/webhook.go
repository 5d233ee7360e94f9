package stripe

import (
	ierr "github.com/fitclub/billing/internal/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/stripe/stripe-go/v82/webhook"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventKind is what a provider event means for a payment
type EventKind string

const (
	EventKindCompleted EventKind = "completed"
	EventKindFailed    EventKind = "failed"
	EventKindExpired   EventKind = "expired"
	EventKindIgnored   EventKind = "ignored"
)

const (
	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutSessionAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpired               = "checkout.session.expired"
	EventPaymentIntentPaymentFailed           = "payment_intent.payment_failed"
	checkoutSessionPaymentStatusUnpaid        = "unpaid"
	defaultPaymentFailedMessage               = "Payment failed"
)

// Event is a verified provider event reduced to what reconciliation needs
type Event struct {
	ID           string
	Type         string
	Kind         EventKind
	PaymentID    string
	UserID       string
	SessionID    string
	ErrorMessage string
}

type eventObject struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	Metadata         map[string]string `json:"metadata"`
	PaymentStatus    string            `json:"payment_status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (c *Client) ParseEvent(payload []byte, signature string) (*Event, error) {
	return parseEvent(payload, signature, c.webhookSecret)
}

func parseEvent(payload []byte, signature, secret string) (*Event, error) {
	if signature == "" || secret == "" {
		return nil, ierr.NewError("missing webhook signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrInvalidSignature)
	}

	out := &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: EventKindIgnored,
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			WithReportableDetails(map[string]any{"event_id": event.ID, "event_type": out.Type}).
			Mark(ierr.ErrValidation)
	}

	out.PaymentID = obj.Metadata["payment_id"]
	out.UserID = obj.Metadata["user_id"]
	if obj.Object == "checkout.session" {
		out.SessionID = obj.ID
	}

	switch out.Type {
	case EventCheckoutSessionCompleted:
		// delayed payment methods complete the session before the money moves
		if obj.PaymentStatus != checkoutSessionPaymentStatusUnpaid {
			out.Kind = EventKindCompleted
		}
	case EventCheckoutSessionAsyncPaymentSucceeded:
		out.Kind = EventKindCompleted
	case EventPaymentIntentPaymentFailed, EventCheckoutSessionAsyncPaymentFailed:
		out.Kind = EventKindFailed
		out.ErrorMessage = defaultPaymentFailedMessage
		if obj.LastPaymentError != nil && obj.LastPaymentError.Message != "" {
			out.ErrorMessage = obj.LastPaymentError.Message
		}
	case EventCheckoutSessionExpired:
		out.Kind = EventKindExpired
	}

	return out, nil
}
