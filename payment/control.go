// Package payment drives a single user's "Pay Now" action: the idle guards,
// the hand-off to the gateway and the side effects of the outcome.
package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"checkout-service/apperrors"
	"checkout-service/auth"
	"checkout-service/cart"
	"checkout-service/gateway"
	"checkout-service/logger"
	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxAmount is the exclusive sanity ceiling for a single payment.
var MaxAmount = decimal.NewFromInt(1_000_000)

// SuccessRoute is where the storefront goes after a successful payment.
const SuccessRoute = "/order-success"

type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notice)
}

type Navigator interface {
	Navigate(ctx context.Context, userID, route string)
}

// Request is what the checkout page passes on "Pay Now".
type Request struct {
	OrderID  string
	Shipping models.ShippingInfo
}

// Deps are shared by every user's control.
type Deps struct {
	Cart      cart.Store
	Auth      auth.Accessor
	Gateway   gateway.Processor
	Notifier  Notifier
	Navigator Navigator
	Recorder  Recorder
	Currency  string

	// Base is the parent of every gateway wait. Cancelling it closes all
	// pending sessions.
	Base context.Context
	Now  func() time.Time
}

// Control is the per-user state machine
// Idle → Validating → AwaitingGateway → Succeeded|Failed → Idle.
type Control struct {
	userID string
	deps   *Deps
	wg     *sync.WaitGroup

	mu      sync.Mutex
	state   State
	last    *Attempt
	touched time.Time
	evicted bool
}

func newControl(userID string, deps *Deps, wg *sync.WaitGroup) *Control {
	c := &Control{userID: userID, deps: deps, wg: wg}
	c.touched = c.now()
	return c
}

func (c *Control) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Control) Processing() bool {
	return c.State().Processing()
}

// Attempt returns the current or most recent attempt if its id matches.
func (c *Control) Attempt(id string) (*Attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || c.last.ID != id {
		return nil, false
	}
	return c.last, true
}

// Start runs the idle guards and, when they pass, hands the payment to the
// gateway in the background. While an attempt is in flight every call
// returns ErrPaymentInProgress without side effects.
//
// A guard violation leaves the control idle, emits one notice and returns
// the matching error. Past the guards Start always returns an attempt; its
// outcome arrives on Done.
func (c *Control) Start(ctx context.Context, req Request) (*Attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.evicted {
		return nil, errEvicted
	}
	if c.state != Idle {
		logger.Debug(ctx, "payment already in progress", zap.String("user_id", c.userID), zap.String("state", c.state.String()))
		return nil, apperrors.ErrPaymentInProgress
	}
	c.touched = c.now()

	st := c.deps.Auth.Current(ctx)
	if st.Loading {
		c.notify(ctx, models.Notice{
			Kind:        apperrors.ErrAuthLoading.Kind,
			Title:       "Please wait",
			Description: "Checking authentication status...",
			Variant:     models.NoticeDefault,
		})
		return nil, apperrors.ErrAuthLoading
	}
	if st.User == nil || st.User.UID == "" {
		c.notify(ctx, models.Notice{
			Kind:        apperrors.ErrAuthenticationRequired.Kind,
			Title:       "Authentication Required",
			Description: "Please sign in to complete your purchase",
			Variant:     models.NoticeDestructive,
		})
		return nil, apperrors.ErrAuthenticationRequired
	}
	user := st.User

	items, err := c.deps.Cart.Items(ctx, user.UID)
	if err != nil {
		logger.Error(ctx, "failed to read cart for payment", err, zap.String("user_id", user.UID))
		c.notify(ctx, failureNotice(apperrors.ErrUnexpected.Kind, apperrors.ErrUnexpected.Message))
		return nil, apperrors.Wrap(apperrors.ErrUnexpected, err)
	}
	amount := cart.Total(items)
	if !amount.IsPositive() || !amount.LessThan(MaxAmount) {
		logger.Info(ctx, "payment rejected: invalid amount", zap.String("user_id", user.UID), zap.String("amount", amount.String()))
		c.notify(ctx, models.Notice{
			Kind:        apperrors.ErrInvalidAmount.Kind,
			Title:       "Invalid Amount",
			Description: "The payment amount is invalid",
			Variant:     models.NoticeDestructive,
		})
		return nil, apperrors.ErrInvalidAmount
	}

	c.state = Validating
	a := newAttempt(uuid.NewString(), user.UID, req.OrderID, amount, c.deps.Currency, c.now())
	c.last = a

	email := strings.TrimSpace(user.Email)
	name := strings.TrimSpace(req.Shipping.FullName)
	if email == "" || name == "" {
		res := models.PaymentResult{
			Error:     apperrors.ErrMissingCustomerInfo.Message,
			ErrorKind: apperrors.ErrMissingCustomerInfo.Kind,
		}
		c.wg.Add(1)
		go c.complete(ctx, a, res)
		return a, nil
	}

	details := models.PaymentDetails{
		Amount:        amount,
		Currency:      c.deps.Currency,
		OrderID:       req.OrderID,
		Description:   fmt.Sprintf("Order #%s", req.OrderID),
		CustomerEmail: email,
		CustomerName:  name,
	}
	c.state = AwaitingGateway
	logger.Info(ctx, "payment attempt started",
		zap.String("attempt_id", a.ID),
		zap.String("user_id", user.UID),
		zap.String("order_id", req.OrderID),
		zap.String("amount", amount.StringFixed(2)),
	)

	// the gateway wait outlives the HTTP request that started it
	gwCtx := gateway.WithAttempt(logger.WithContext(c.base(), logger.RequestID(ctx)), a.ID)
	c.wg.Add(1)
	go c.run(gwCtx, a, details)
	return a, nil
}

func (c *Control) run(ctx context.Context, a *Attempt, details models.PaymentDetails) {
	res := c.process(ctx, details)
	c.complete(ctx, a, res)
}

func (c *Control) process(ctx context.Context, details models.PaymentDetails) (res models.PaymentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "payment processing panicked", fmt.Errorf("%v", r))
			res = models.PaymentResult{Error: apperrors.ErrUnexpected.Message, ErrorKind: apperrors.ErrUnexpected.Kind}
		}
	}()
	return c.deps.Gateway.ProcessPayment(ctx, details)
}

// complete applies the outcome's side effects, records it and returns the
// control to Idle. It runs on its own goroutine so the state stays
// non-idle until the side effects are done.
func (c *Control) complete(ctx context.Context, a *Attempt, res models.PaymentResult) {
	defer c.wg.Done()
	ctx = context.WithoutCancel(ctx)

	state := Failed
	if res.Success {
		state = Succeeded
		res.Error, res.ErrorKind = "", ""
	} else {
		res.TransactionID = ""
		if strings.TrimSpace(res.Error) == "" {
			res.Error = apperrors.ErrGatewayFailure.Message
		}
		if res.ErrorKind == "" {
			res.ErrorKind = apperrors.ErrGatewayFailure.Kind
		}
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	fields := []zap.Field{
		zap.String("attempt_id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("order_id", a.OrderID),
		zap.String("state", state.String()),
	}

	if state == Succeeded {
		if err := c.deps.Cart.Clear(ctx, a.UserID); err != nil {
			logger.Error(ctx, "failed to clear cart after payment", err, fields...)
		}
		c.deps.Notifier.Notify(ctx, a.UserID, models.Notice{
			Kind:        "payment_succeeded",
			Title:       "Payment Successful",
			Description: fmt.Sprintf("Order #%s has been placed successfully", a.OrderID),
			Variant:     models.NoticeDefault,
		})
		c.deps.Navigator.Navigate(ctx, a.UserID, SuccessRoute)
		logger.Info(ctx, "payment succeeded", append(fields, zap.String("transaction_id", res.TransactionID))...)
	} else {
		c.deps.Notifier.Notify(ctx, a.UserID, failureNotice(res.ErrorKind, res.Error))
		lf := append(fields, zap.String("error_kind", res.ErrorKind), zap.String("error", res.Error))
		if res.ErrorKind == apperrors.ErrGatewayCancelled.Kind {
			logger.Info(ctx, "payment cancelled", lf...)
		} else if res.ErrorKind == apperrors.ErrUnexpected.Kind || res.ErrorKind == apperrors.ErrSDKUnavailable.Kind {
			logger.Error(ctx, "payment failed", nil, lf...)
		} else {
			logger.Warn(ctx, "payment failed", lf...)
		}
	}

	finished := c.now()
	if c.deps.Recorder != nil {
		c.deps.Recorder.Record(ctx, Record{
			AttemptID:  a.ID,
			UserID:     a.UserID,
			OrderID:    a.OrderID,
			Amount:     a.Amount,
			Currency:   a.Currency,
			Result:     res,
			StartedAt:  a.StartedAt,
			FinishedAt: finished,
		})
	}

	c.mu.Lock()
	c.state = Idle
	c.touched = c.now()
	c.mu.Unlock()

	a.finish(Outcome{State: state, Status: state.String(), Result: res, FinishedAt: finished})
}

// evictIfIdle marks the control dead when it has been idle since before
// cutoff. The caller removes it from the registry.
func (c *Control) evictIfIdle(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle || c.touched.After(cutoff) {
		return false
	}
	c.evicted = true
	return true
}

func (c *Control) notify(ctx context.Context, n models.Notice) {
	c.deps.Notifier.Notify(ctx, c.userID, n)
}

func (c *Control) base() context.Context {
	if c.deps.Base != nil {
		return c.deps.Base
	}
	return context.Background()
}

func (c *Control) now() time.Time {
	if c.deps.Now != nil {
		return c.deps.Now()
	}
	return time.Now()
}

func failureNotice(kind, description string) models.Notice {
	return models.Notice{
		Kind:        kind,
		Title:       "Payment Error",
		Description: description,
		Variant:     models.NoticeDestructive,
	}
}
