package gateway

import (
	"context"
)

// OrderRequest opens a gateway-side order for one attempt.
type OrderRequest struct {
	Receipt  string
	Amount   int64 // minor units
	Currency string
	Notes    map[string]string
}

// GatewayOrder is what the browser needs to open the hosted widget.
type GatewayOrder struct {
	ID           string
	ClientSecret string
}

// Confirmation is the payload of the widget's success callback.
type Confirmation struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Provider abstracts the hosted payment gateway.
type Provider interface {
	Name() string
	// Key is the public key handed to the browser.
	Key() string
	CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error)
	// VerifyPayment returns nil only when the provider confirms the payment.
	VerifyPayment(ctx context.Context, c Confirmation) error
}

// SecretSource resolves named secrets, typically from AWS Secrets Manager.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}
