package gateway

import (
	"context"
	"sync"

	"checkout-service/apperrors"
)

// ModalRequest is the option set the browser passes to the hosted widget.
type ModalRequest struct {
	AttemptID    string  `json:"attempt_id"`
	Provider     string  `json:"provider"`
	ScriptURL    string  `json:"script_url"`
	Key          string  `json:"key"`
	Amount       int64   `json:"amount"`
	Currency     string  `json:"currency"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	OrderID      string  `json:"order_id"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Prefill      Prefill `json:"prefill"`
}

type Prefill struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeDismissed
)

// ModalOutcome is one of the widget's two terminal callbacks.
type ModalOutcome struct {
	Kind         OutcomeKind
	Confirmation Confirmation
}

// Modal opens the hosted widget and blocks until it reports an outcome or
// ctx ends.
type Modal interface {
	Open(ctx context.Context, req ModalRequest) (ModalOutcome, error)
}

type session struct {
	ready    chan struct{}
	outcome  chan ModalOutcome
	req      ModalRequest
	opened   bool
	resolved bool
}

// how many finished attempt ids are remembered for duplicate callbacks
const tombstoneCap = 4096

// Bridge is the Modal used in production. Open parks an attempt until the
// browser reports the widget's callback over HTTP. Each attempt resolves at
// most once.
type Bridge struct {
	mu         sync.Mutex
	sessions   map[string]*session
	tombstones map[string]*apperrors.Error
	order      []string
}

func NewBridge() *Bridge {
	return &Bridge{
		sessions:   make(map[string]*session),
		tombstones: make(map[string]*apperrors.Error),
	}
}

func (b *Bridge) sessionLocked(id string) *session {
	s, ok := b.sessions[id]
	if !ok {
		s = &session{ready: make(chan struct{}), outcome: make(chan ModalOutcome, 1)}
		b.sessions[id] = s
	}
	return s
}

func (b *Bridge) Open(ctx context.Context, req ModalRequest) (ModalOutcome, error) {
	b.mu.Lock()
	s := b.sessionLocked(req.AttemptID)
	if s.opened {
		b.mu.Unlock()
		return ModalOutcome{}, apperrors.WithMessage(apperrors.ErrBadRequest, "payment attempt already open")
	}
	s.req = req
	s.opened = true
	close(s.ready)
	b.mu.Unlock()

	select {
	case out := <-s.outcome:
		b.mu.Lock()
		b.finishLocked(req.AttemptID, apperrors.ErrAlreadyResolved)
		b.mu.Unlock()
		return out, nil
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		// a callback accepted before the lock was taken still wins
		if s.resolved {
			b.finishLocked(req.AttemptID, apperrors.ErrAlreadyResolved)
			return <-s.outcome, nil
		}
		b.finishLocked(req.AttemptID, apperrors.ErrSessionClosed)
		return ModalOutcome{}, apperrors.Wrap(apperrors.ErrSessionClosed, ctx.Err())
	}
}

// finishLocked forgets the session and remembers how it ended, so late
// callbacks get reason.
func (b *Bridge) finishLocked(id string, reason *apperrors.Error) {
	delete(b.sessions, id)
	if _, seen := b.tombstones[id]; !seen {
		b.order = append(b.order, id)
	}
	b.tombstones[id] = reason
	if len(b.order) > tombstoneCap {
		delete(b.tombstones, b.order[0])
		b.order = b.order[1:]
	}
}

// Pending waits for attemptID's widget to open and returns its options. If
// ctx ends first and the widget never opened, the placeholder is dropped.
func (b *Bridge) Pending(ctx context.Context, attemptID string) (ModalRequest, error) {
	b.mu.Lock()
	if reason, done := b.tombstones[attemptID]; done {
		b.mu.Unlock()
		return ModalRequest{}, reason
	}
	s := b.sessionLocked(attemptID)
	b.mu.Unlock()

	select {
	case <-s.ready:
		return s.req, nil
	case <-ctx.Done():
		b.mu.Lock()
		if cur, ok := b.sessions[attemptID]; ok && cur == s && !s.opened {
			delete(b.sessions, attemptID)
		}
		b.mu.Unlock()
		return ModalRequest{}, ctx.Err()
	}
}

// Resolve delivers the widget's callback. Only the first callback for an
// open attempt is accepted. Callbacks for a session closed by shutdown get
// ErrSessionClosed.
func (b *Bridge) Resolve(attemptID string, out ModalOutcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if reason, done := b.tombstones[attemptID]; done {
		return reason
	}
	s, ok := b.sessions[attemptID]
	if !ok || !s.opened {
		return apperrors.WithMessage(apperrors.ErrNotFound, "payment attempt is not awaiting the gateway")
	}
	if s.resolved {
		return apperrors.ErrAlreadyResolved
	}
	s.resolved = true
	s.outcome <- out
	return nil
}

// Confirm reports the widget's success handler.
func (b *Bridge) Confirm(attemptID string, c Confirmation) error {
	return b.Resolve(attemptID, ModalOutcome{Kind: OutcomeSucceeded, Confirmation: c})
}

// Dismiss reports modal.ondismiss.
func (b *Bridge) Dismiss(attemptID string) error {
	return b.Resolve(attemptID, ModalOutcome{Kind: OutcomeDismissed})
}

type attemptKey struct{}

// WithAttempt tags ctx with the attempt id the modal is keyed by.
func WithAttempt(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, attemptKey{}, attemptID)
}

func AttemptFromContext(ctx context.Context) string {
	id, _ := ctx.Value(attemptKey{}).(string)
	return id
}
