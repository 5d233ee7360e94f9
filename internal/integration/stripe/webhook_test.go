package stripe

import (
	"testing"
	"time"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		kind     EventKind
		session  string
		errorMsg string
	}{
		{
			name:    "completed session",
			payload: `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid","metadata":{"payment_id":"pay_1","user_id":"usr_1"}}}}`,
			kind:    EventKindCompleted,
			session: "cs_1",
		},
		{
			name:    "completed but unpaid",
			payload: `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","metadata":{"payment_id":"pay_1","user_id":"usr_1"}}}}`,
			kind:    EventKindIgnored,
			session: "cs_2",
		},
		{
			name:     "payment intent failed",
			payload:  `{"id":"evt_3","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"payment_id":"pay_1","user_id":"usr_1"},"last_payment_error":{"message":"Your card was declined."}}}}`,
			kind:     EventKindFailed,
			errorMsg: "Your card was declined.",
		},
		{
			name:     "async failure without message",
			payload:  `{"id":"evt_4","object":"event","type":"checkout.session.async_payment_failed","data":{"object":{"id":"cs_4","object":"checkout.session","metadata":{"payment_id":"pay_1","user_id":"usr_1"}}}}`,
			kind:     EventKindFailed,
			session:  "cs_4",
			errorMsg: defaultPaymentFailedMessage,
		},
		{
			name:    "session expired",
			payload: `{"id":"evt_5","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_5","object":"checkout.session","metadata":{"payment_id":"pay_1","user_id":"usr_1"}}}}`,
			kind:    EventKindExpired,
			session: "cs_5",
		},
		{
			name:    "unrelated event",
			payload: `{"id":"evt_6","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer","metadata":{}}}}`,
			kind:    EventKindIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := parseEvent([]byte(tt.payload), sign(t, tt.payload), testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, event.Kind)
			assert.Equal(t, tt.session, event.SessionID)
			assert.Equal(t, tt.errorMsg, event.ErrorMessage)
			if tt.kind != EventKindIgnored {
				assert.Equal(t, "pay_1", event.PaymentID)
				assert.Equal(t, "usr_1", event.UserID)
			}
		})
	}
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

	_, err := parseEvent([]byte(payload), "t=1,v1=deadbeef", testSecret)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidSignature(err))

	_, err = parseEvent([]byte(payload), "", testSecret)
	assert.True(t, ierr.IsInvalidSignature(err))

	tampered := sign(t, payload)
	_, err = parseEvent([]byte(payload+" "), tampered, testSecret)
	assert.True(t, ierr.IsInvalidSignature(err))
}
