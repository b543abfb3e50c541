package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

const ProviderStripe = "stripe"

type stripeIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProvider maps a gateway order onto a PaymentIntent. The browser
// confirms it with the client secret and reports the intent id back.
type StripeProvider struct {
	publishableKey string
	intents        stripeIntents
}

func NewStripeProvider(secretKey, publishableKey string) *StripeProvider {
	sc := client.New(secretKey, nil)
	return &StripeProvider{publishableKey: publishableKey, intents: sc.PaymentIntents}
}

func (p *StripeProvider) Name() string { return ProviderStripe }
func (p *StripeProvider) Key() string  { return p.publishableKey }

func (p *StripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.AddMetadata("receipt", req.Receipt)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	pi, err := p.intents.New(params)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return GatewayOrder{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyPayment asks Stripe for the intent's status rather than trusting the
// browser.
func (p *StripeProvider) VerifyPayment(ctx context.Context, c Confirmation) error {
	if c.OrderID == "" {
		return errors.New("stripe confirmation has no payment intent id")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.intents.Get(c.OrderID, params)
	if err != nil {
		return fmt.Errorf("stripe get payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment intent %s is %s", pi.ID, pi.Status)
	}
	return nil
}

func StripeFactory(secretKey, publishableKey string) ProviderFactory {
	return func(context.Context) (Provider, error) {
		if secretKey == "" || publishableKey == "" {
			return nil, errors.New("stripe keys are not configured")
		}
		return NewStripeProvider(secretKey, publishableKey), nil
	}
}
