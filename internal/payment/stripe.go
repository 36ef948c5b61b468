package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/webhook"
)

type stripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the stripe client with the secret key and
// returns a Gateway backed by Stripe Checkout.
func NewStripeGateway(secretKey, webhookSecret string) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{webhookSecret: webhookSecret}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	sessParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		CustomerEmail:      stripe.String(params.CustomerEmail),
		ClientReferenceID:  stripe.String(params.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(params.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(params.ProductName),
						Description: stripe.String(params.Description),
					},
					// stripe amounts are in the currency's smallest unit
					UnitAmount: stripe.Int64(int64(math.Round(params.Amount * 100))),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	sessParams.Context = ctx

	sess, err := session.New(sessParams)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*CheckoutEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook verification: %w", err)
	}

	out := &CheckoutEvent{Type: string(event.Type)}
	if event.Type != "checkout.session.completed" {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe webhook payload: %w", err)
	}

	out.Completed = true
	out.ClientReferenceID = sess.ClientReferenceID
	if sess.PaymentIntent != nil {
		out.TransactionID = sess.PaymentIntent.ID
	}
	return out, nil
}

func (g *stripeGateway) CreateRefund(ctx context.Context, transactionID, reason string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	return ref.ID, nil
}
