package payment

import (
	"sync"
	"time"

	"checkout-service/models"

	"github.com/shopspring/decimal"
)

// Outcome is the terminal state of an attempt.
type Outcome struct {
	State      State                `json:"-"`
	Status     string               `json:"status"`
	Result     models.PaymentResult `json:"result"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Attempt is one press of "Pay Now" that passed the idle guards.
type Attempt struct {
	ID        string
	UserID    string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	StartedAt time.Time

	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	outcome *Outcome
}

func newAttempt(id, userID, orderID string, amount decimal.Decimal, currency string, now time.Time) *Attempt {
	return &Attempt{
		ID:        id,
		UserID:    userID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		StartedAt: now,
		done:      make(chan struct{}),
	}
}

// Done is closed once the outcome is available.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Outcome returns the terminal outcome, or false while the attempt runs.
func (a *Attempt) Outcome() (Outcome, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.outcome == nil {
		return Outcome{}, false
	}
	return *a.outcome, true
}

func (a *Attempt) finish(o Outcome) {
	a.once.Do(func() {
		a.mu.Lock()
		a.outcome = &o
		a.mu.Unlock()
		close(a.done)
	})
}
