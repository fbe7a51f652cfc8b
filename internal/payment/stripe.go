package payment

import (
	"context"

	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"

	dErrors "marketplace/pkg/domain-errors"
)

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct{}

// NewStripeProvider sets the API key for the stripe-go package. The key is
// process-global, matching how stripe-go manages it.
func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payment intent")
	}
	return intent.ClientSecret, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, items []LineItem, successURL, cancelURL string) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, len(items))
	for i, item := range items {
		lineItems[i] = &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(item.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx

	created, err := checkoutsession.New(params)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create checkout session")
	}
	return &CheckoutSession{ID: created.ID, URL: created.URL}, nil
}
