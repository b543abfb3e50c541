package gateway

import (
	"context"
	"errors"
	"sync"
)

type fakeProvider struct {
	mu        sync.Mutex
	orderID   string
	createErr error
	verifyErr error
	panicMsg  string
	orders    []OrderRequest
	verified  []Confirmation
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Key() string  { return "rzp_test_key" }

func (f *fakeProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.createErr != nil {
		return GatewayOrder{}, f.createErr
	}
	return GatewayOrder{ID: f.orderID}, nil
}

func (f *fakeProvider) VerifyPayment(ctx context.Context, c Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, c)
	return f.verifyErr
}

type modalFunc func(ctx context.Context, req ModalRequest) (ModalOutcome, error)

func (f modalFunc) Open(ctx context.Context, req ModalRequest) (ModalOutcome, error) {
	return f(ctx, req)
}

func staticFactory(p Provider) ProviderFactory {
	return func(context.Context) (Provider, error) { return p, nil }
}

func failingFactory() ProviderFactory {
	return func(context.Context) (Provider, error) { return nil, errors.New("script blocked") }
}
