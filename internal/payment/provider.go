package payment

import "context"

// LineItem is one priced line of a checkout session. Amounts are in the
// currency's minor unit.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Currency   string
}

// CheckoutSession is a hosted payment page handle.
type CheckoutSession struct {
	ID  string
	URL string
}

// Provider is the payment gateway boundary. Tests substitute a fake; the
// real one talks to Stripe.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (clientSecret string, err error)
	CreateCheckoutSession(ctx context.Context, items []LineItem, successURL, cancelURL string) (*CheckoutSession, error)
}
