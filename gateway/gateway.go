// Package gateway hands a payment to the hosted gateway widget and turns its
// asynchronous callbacks into a single PaymentResult.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checkout-service/apperrors"
	"checkout-service/logger"
	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Processor is what the payment control depends on.
type Processor interface {
	ProcessPayment(ctx context.Context, details models.PaymentDetails) models.PaymentResult
}

type AdapterConfig struct {
	StoreName string
	ScriptURL string
}

// Adapter is the production Processor.
type Adapter struct {
	loader  *Loader
	modal   Modal
	breaker *gobreaker.CircuitBreaker[GatewayOrder]
	cfg     AdapterConfig
}

func NewAdapter(loader *Loader, modal Modal, cfg AdapterConfig) *Adapter {
	if cfg.StoreName == "" {
		cfg.StoreName = "FitElite"
	}
	return &Adapter{
		loader:  loader,
		modal:   modal,
		breaker: NewOrderBreaker("gateway-create-order"),
		cfg:     cfg,
	}
}

// ProcessPayment never returns an error and never panics. Every failure
// becomes a result with Success=false and a readable Error.
func (a *Adapter) ProcessPayment(ctx context.Context, details models.PaymentDetails) (result models.PaymentResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			logger.Error(ctx, "payment gateway panicked", err, zap.String("order_id", details.OrderID))
			result = failure(apperrors.Wrap(apperrors.ErrGatewayFailure, err), err.Error())
		}
	}()

	res, err := a.process(ctx, details)
	if err != nil {
		return failure(err, "")
	}
	return res
}

func (a *Adapter) process(ctx context.Context, d models.PaymentDetails) (models.PaymentResult, error) {
	provider, err := a.loader.Ensure(ctx)
	if err != nil {
		return models.PaymentResult{}, err
	}

	minor, err := MinorUnits(d.Amount)
	if err != nil {
		return models.PaymentResult{}, apperrors.Wrap(apperrors.ErrInvalidAmount, err)
	}

	attemptID := AttemptFromContext(ctx)
	if attemptID == "" {
		attemptID = uuid.NewString()
	}

	order, err := a.breaker.Execute(func() (GatewayOrder, error) {
		return provider.CreateOrder(ctx, OrderRequest{
			Receipt:  d.OrderID,
			Amount:   minor,
			Currency: d.Currency,
			Notes:    map[string]string{"attempt_id": attemptID, "order_id": d.OrderID},
		})
	})
	if err != nil {
		logger.Error(ctx, "gateway order creation failed", err,
			zap.String("provider", provider.Name()),
			zap.String("attempt_id", attemptID),
		)
		return models.PaymentResult{}, apperrors.Wrap(apperrors.ErrGatewayFailure, err)
	}

	out, err := a.modal.Open(ctx, ModalRequest{
		AttemptID:    attemptID,
		Provider:     provider.Name(),
		ScriptURL:    a.cfg.ScriptURL,
		Key:          provider.Key(),
		Amount:       minor,
		Currency:     d.Currency,
		Name:         a.cfg.StoreName,
		Description:  d.Description,
		OrderID:      order.ID,
		ClientSecret: order.ClientSecret,
		Prefill:      Prefill{Email: d.CustomerEmail, Name: d.CustomerName},
	})
	if err != nil {
		return models.PaymentResult{GatewayOrderID: order.ID}, err
	}

	switch out.Kind {
	case OutcomeDismissed:
		r := failure(apperrors.ErrGatewayCancelled, "")
		r.GatewayOrderID = order.ID
		return r, nil
	case OutcomeSucceeded:
		c := out.Confirmation
		if c.OrderID == "" {
			c.OrderID = order.ID
		}
		if c.OrderID != order.ID {
			return models.PaymentResult{}, apperrors.Wrap(apperrors.ErrVerificationFailed,
				fmt.Errorf("confirmation for order %s does not match %s", c.OrderID, order.ID))
		}
		if err := provider.VerifyPayment(ctx, c); err != nil {
			logger.Warn(ctx, "payment verification failed",
				zap.String("attempt_id", attemptID),
				zap.String("gateway_order_id", order.ID),
				zap.Error(err),
			)
			return models.PaymentResult{}, apperrors.Wrap(apperrors.ErrVerificationFailed, err)
		}
		txID := c.PaymentID
		if txID == "" {
			txID = c.OrderID
		}
		return models.PaymentResult{Success: true, TransactionID: txID, GatewayOrderID: order.ID}, nil
	default:
		return models.PaymentResult{}, fmt.Errorf("unknown modal outcome %d", out.Kind)
	}
}

// failure maps err to a failed result. Application errors carry their own
// user-facing message; anything else surfaces its text.
func failure(err error, fallback string) models.PaymentResult {
	msg := fallback
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && msg == "" {
		msg = appErr.Message
	} else if msg == "" {
		msg = err.Error()
	}
	if strings.TrimSpace(msg) == "" {
		msg = apperrors.ErrGatewayFailure.Message
	}

	kind := apperrors.Kind(err)
	if kind == "internal" {
		kind = apperrors.ErrGatewayFailure.Kind
	}
	return models.PaymentResult{Success: false, Error: msg, ErrorKind: kind}
}
