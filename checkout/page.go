// Package checkout composes the checkout page: the shipping form, the order
// summary and the "Pay Now" hand-off to the user's payment control.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"checkout-service/apperrors"
	"checkout-service/auth"
	"checkout-service/cart"
	"checkout-service/logger"
	"checkout-service/models"
	"checkout-service/payment"

	"go.uber.org/zap"
)

// CartRoute is where guests are sent instead of the checkout page.
const CartRoute = "/cart"

// PlaceholderOrderID is used when Pay is called without an order id.
const PlaceholderOrderID = "temp-order-id"

// Controls runs the per-user payment controls. *payment.Registry
// satisfies it.
type Controls interface {
	Start(ctx context.Context, userID string, req payment.Request) (*payment.Attempt, error)
	Processing(userID string) bool
}

// Line is one row of the order summary.
type Line struct {
	models.CartItem
	Subtotal string `json:"subtotal"`
}

// View is the rendered checkout page. Only Redirect is set for guests.
type View struct {
	Redirect   string              `json:"redirect,omitempty"`
	Shipping   models.ShippingInfo `json:"shipping"`
	Items      []Line              `json:"items"`
	Total      string              `json:"total"`
	Processing bool                `json:"processing"`
}

type Page struct {
	cart     cart.Store
	auth     auth.Accessor
	orders   OrderCreator
	controls Controls

	mu       sync.Mutex
	shipping map[string]shippingEntry
	creating map[string]int
	now      func() time.Time
}

type shippingEntry struct {
	info    models.ShippingInfo
	touched time.Time
}

func NewPage(store cart.Store, accessor auth.Accessor, orders OrderCreator, controls Controls) *Page {
	return &Page{
		cart:     store,
		auth:     accessor,
		orders:   orders,
		controls: controls,
		shipping: make(map[string]shippingEntry),
		creating: make(map[string]int),
		now:      time.Now,
	}
}

func (p *Page) View(ctx context.Context) (View, error) {
	user := p.auth.Current(ctx).User
	if user == nil {
		return View{Redirect: CartRoute}, nil
	}

	items, err := p.cart.Items(ctx, user.UID)
	if err != nil {
		return View{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{CartItem: it, Subtotal: it.Subtotal().StringFixed(2)})
	}

	p.mu.Lock()
	shipping := p.shipping[user.UID].info
	creating := p.creating[user.UID] > 0
	p.mu.Unlock()

	return View{
		Shipping:   shipping,
		Items:      lines,
		Total:      cart.Total(items).StringFixed(2),
		Processing: creating || p.controls.Processing(user.UID),
	}, nil
}

// UpdateShipping replaces the user's form fields. Nothing is validated and
// nothing is persisted.
func (p *Page) UpdateShipping(ctx context.Context, info models.ShippingInfo) (models.ShippingInfo, error) {
	user := p.auth.Current(ctx).User
	if user == nil {
		return models.ShippingInfo{}, apperrors.ErrAuthenticationRequired
	}
	p.mu.Lock()
	p.shipping[user.UID] = shippingEntry{info: info, touched: p.now()}
	p.mu.Unlock()
	return info, nil
}

// CreateOrder places a pending draft order for the current cart. Guests
// are recorded as "guest".
func (p *Page) CreateOrder(ctx context.Context) (string, error) {
	userID := GuestUserID
	if user := p.auth.Current(ctx).User; user != nil {
		userID = user.UID
	}

	items, err := p.cart.Items(ctx, userID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(items) == 0 {
		return "", apperrors.WithMessage(apperrors.ErrBadRequest, "Cart is empty")
	}

	p.mu.Lock()
	shipping := p.shipping[userID].info
	p.creating[userID]++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.creating[userID]--; p.creating[userID] <= 0 {
			delete(p.creating, userID)
		}
		p.mu.Unlock()
	}()

	orderID, err := p.orders.CreateOrder(ctx, models.DraftOrder{
		UserID:          userID,
		Items:           items,
		Total:           cart.Total(items),
		ShippingAddress: shipping,
		Status:          models.OrderStatusPending,
	})
	if err != nil {
		logger.Error(ctx, "order creation failed", err, zap.String("user_id", userID))
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return orderID, nil
}

// Pay presses "Pay Now" for the current caller with the stored shipping
// info. The guards of the payment control apply unchanged.
func (p *Page) Pay(ctx context.Context, orderID string) (*payment.Attempt, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		orderID = PlaceholderOrderID
	}
	if utf8.RuneCountInString(orderID) > models.MaxOrderIDLen {
		return nil, apperrors.WithMessage(apperrors.ErrBadRequest, "order_id is too long")
	}

	userID := ""
	if user := p.auth.Current(ctx).User; user != nil {
		userID = user.UID
	}
	p.mu.Lock()
	e, ok := p.shipping[userID]
	if ok {
		e.touched = p.now()
		p.shipping[userID] = e
	}
	p.mu.Unlock()

	return p.controls.Start(ctx, userID, payment.Request{OrderID: orderID, Shipping: e.info})
}

// Sweep forgets shipping forms not edited or paid with within ttl. It
// returns how many were dropped.
func (p *Page) Sweep(ttl time.Duration) int {
	cutoff := p.now().Add(-ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for id, e := range p.shipping {
		if e.touched.Before(cutoff) {
			delete(p.shipping, id)
			removed++
		}
	}
	return removed
}
