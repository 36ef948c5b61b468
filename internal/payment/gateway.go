package payment

import "context"

// CheckoutParams describe a hosted checkout session for one booking.
// ClientReferenceID carries the booking id so the webhook can correlate
// the gateway event back to the booking.
type CheckoutParams struct {
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	ProductName       string
	Description       string
	Amount            float64
	Currency          string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutEvent is a verified gateway webhook event. Completed is true for
// checkout-completed events; all other event types are passed through so the
// reconciler can ack and ignore them.
type CheckoutEvent struct {
	Type              string
	Completed         bool
	ClientReferenceID string
	TransactionID     string
}

// Gateway is the payment-provider collaborator. Webhook delivery is
// at-least-once, so consumers of CheckoutEvent must be idempotent.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*CheckoutEvent, error)
	CreateRefund(ctx context.Context, transactionID, reason string) (string, error)
}
