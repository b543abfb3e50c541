package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const ProviderRazorpay = "razorpay"

// receipts longer than this are rejected by the Orders API
const maxReceiptLen = 40

type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayProvider struct {
	keyID     string
	keySecret string
	orders    razorpayOrders
}

func NewRazorpayProvider(keyID, keySecret string) *RazorpayProvider {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayProvider{keyID: keyID, keySecret: keySecret, orders: client.Order}
}

func (p *RazorpayProvider) Name() string { return ProviderRazorpay }
func (p *RazorpayProvider) Key() string  { return p.keyID }

func (p *RazorpayProvider) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return GatewayOrder{}, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  truncate(req.Receipt, maxReceiptLen),
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := p.orders.Create(data, nil)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return GatewayOrder{}, errors.New("razorpay create order: response has no id")
	}
	return GatewayOrder{ID: id}, nil
}

// VerifyPayment checks the HMAC-SHA256 signature of order_id|payment_id.
func (p *RazorpayProvider) VerifyPayment(_ context.Context, c Confirmation) error {
	if c.PaymentID == "" || c.OrderID == "" || c.Signature == "" {
		return errors.New("razorpay confirmation is incomplete")
	}
	params := map[string]interface{}{
		"razorpay_order_id":   c.OrderID,
		"razorpay_payment_id": c.PaymentID,
	}
	if !utils.VerifyPaymentSignature(params, c.Signature, p.keySecret) {
		return errors.New("razorpay signature mismatch")
	}
	return nil
}

// RazorpayFactory builds the provider, reading the key secret from secrets
// when secretName is set.
func RazorpayFactory(keyID, keySecret, secretName string, secrets SecretSource) ProviderFactory {
	return func(ctx context.Context) (Provider, error) {
		secret := keySecret
		if secretName != "" {
			if secrets == nil {
				return nil, fmt.Errorf("secret %s requested but no secret source configured", secretName)
			}
			s, err := secrets.GetSecret(ctx, secretName)
			if err != nil {
				return nil, err
			}
			secret = strings.TrimSpace(s)
		}
		if keyID == "" || secret == "" {
			return nil, errors.New("razorpay credentials are not configured")
		}
		return NewRazorpayProvider(keyID, secret), nil
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
