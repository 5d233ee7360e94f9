package types

const (
	HeaderRequestID       = "X-Request-ID"
	HeaderAuthorization   = "Authorization"
	HeaderCronSecret      = "X-Cron-Secret"
	HeaderStripeSignature = "Stripe-Signature"
)
