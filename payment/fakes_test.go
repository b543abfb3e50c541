package payment

import (
	"context"
	"errors"
	"sync"

	"checkout-service/auth"
	"checkout-service/models"

	"github.com/shopspring/decimal"
)

type memCart struct {
	mu       sync.Mutex
	items    map[string][]models.CartItem
	readErr  error
	clearErr error
}

func newMemCart() *memCart {
	return &memCart{items: map[string][]models.CartItem{}}
}

func (m *memCart) put(userID string, price string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = append(m.items[userID], models.CartItem{
		ID:       "p" + price,
		Name:     "Item " + price,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
}

func (m *memCart) Items(_ context.Context, userID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]models.CartItem(nil), m.items[userID]...), nil
}

func (m *memCart) Add(_ context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	return nil, errors.New("not used")
}

func (m *memCart) Remove(_ context.Context, userID, itemID string) (*models.Cart, error) {
	return nil, errors.New("not used")
}

func (m *memCart) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.items, userID)
	return nil
}

func (m *memCart) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[userID])
}

type staticAuth struct {
	state auth.State
}

func (s staticAuth) Current(context.Context) auth.State { return s.state }

func signedIn(uid, email string) staticAuth {
	return staticAuth{state: auth.State{User: &models.User{UID: uid, Email: email}}}
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []models.PaymentDetails
	ctxs    []context.Context
	result  models.PaymentResult
	panics  bool
	release chan struct{}
	entered chan struct{}
}

func (g *fakeGateway) ProcessPayment(ctx context.Context, d models.PaymentDetails) models.PaymentResult {
	g.mu.Lock()
	g.calls = append(g.calls, d)
	g.ctxs = append(g.ctxs, ctx)
	g.mu.Unlock()

	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return models.PaymentResult{Error: "Payment session closed", ErrorKind: "session_closed"}
		}
	}
	if g.panics {
		panic("gateway exploded")
	}
	return g.result
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type sink struct {
	mu        sync.Mutex
	notices   map[string][]models.Notice
	redirects map[string][]string
}

func newSink() *sink {
	return &sink{notices: map[string][]models.Notice{}, redirects: map[string][]string{}}
}

func (s *sink) Notify(_ context.Context, userID string, n models.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices[userID] = append(s.notices[userID], n)
}

func (s *sink) Navigate(_ context.Context, userID, route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[userID] = append(s.redirects[userID], route)
}

func (s *sink) noticesFor(userID string) []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notice(nil), s.notices[userID]...)
}

func (s *sink) redirectsFor(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.redirects[userID]...)
}

type memRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (m *memRecorder) Record(_ context.Context, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *memRecorder) all() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}
