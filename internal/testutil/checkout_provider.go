package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/integration/stripe"
	jsoniter "github.com/json-iterator/go"
)

const (
	// ValidWebhookSignature is the only signature FakeCheckoutProvider accepts
	ValidWebhookSignature = "valid-signature"
)

var _ stripe.CheckoutProvider = (*FakeCheckoutProvider)(nil)

// FakeCheckoutProvider records sessions instead of calling the provider.
// Webhook payloads are stripe.Event values encoded as JSON.
type FakeCheckoutProvider struct {
	mu        sync.Mutex
	customers map[string]string
	sessions  []stripe.CreateSessionRequest
	// SessionErr makes CreateCheckoutSession fail
	SessionErr error
	// CustomerErr makes GetOrCreateCustomer fail
	CustomerErr error
}

func NewFakeCheckoutProvider() *FakeCheckoutProvider {
	return &FakeCheckoutProvider{customers: make(map[string]string)}
}

func (f *FakeCheckoutProvider) GetOrCreateCustomer(ctx context.Context, req stripe.CustomerRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CustomerErr != nil {
		return "", f.CustomerErr
	}
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}
	id := fmt.Sprintf("cus_%d", len(f.customers)+1)
	f.customers[req.UserID] = id
	return id, nil
}

func (f *FakeCheckoutProvider) CreateCheckoutSession(ctx context.Context, req stripe.CreateSessionRequest) (*stripe.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SessionErr != nil {
		return nil, ierr.WithError(f.SessionErr).
			WithHint(f.SessionErr.Error()).
			Mark(ierr.ErrCheckoutCreationFailed)
	}

	f.sessions = append(f.sessions, req)
	id := fmt.Sprintf("cs_test_%d", len(f.sessions))
	return &stripe.Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *FakeCheckoutProvider) ParseEvent(payload []byte, signature string) (*stripe.Event, error) {
	if signature != ValidWebhookSignature {
		return nil, ierr.NewError("signature mismatch").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrInvalidSignature)
	}

	var event stripe.Event
	if err := jsoniter.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// Sessions returns the session requests made so far
func (f *FakeCheckoutProvider) Sessions() []stripe.CreateSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stripe.CreateSessionRequest(nil), f.sessions...)
}

// EventPayload encodes an event the way ParseEvent expects it
func EventPayload(event stripe.Event) []byte {
	payload, _ := jsoniter.Marshal(event)
	return payload
}
