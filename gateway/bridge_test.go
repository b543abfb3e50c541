package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"checkout-service/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openResult struct {
	out ModalOutcome
	err error
}

func openAsync(b *Bridge, ctx context.Context, req ModalRequest) <-chan openResult {
	ch := make(chan openResult, 1)
	go func() {
		out, err := b.Open(ctx, req)
		ch <- openResult{out, err}
	}()
	return ch
}

func TestBridge_ConfirmOnce(t *testing.T) {
	b := NewBridge()
	res := openAsync(b, context.Background(), ModalRequest{AttemptID: "a1", Amount: 50000})

	req, err := b.Pending(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), req.Amount)

	require.NoError(t, b.Confirm("a1", Confirmation{PaymentID: "pay_123"}))
	assert.ErrorIs(t, b.Dismiss("a1"), apperrors.ErrAlreadyResolved)

	r := <-res
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeSucceeded, r.out.Kind)
	assert.Equal(t, "pay_123", r.out.Confirmation.PaymentID)

	// once Open has returned the id is remembered
	assert.ErrorIs(t, b.Confirm("a1", Confirmation{PaymentID: "pay_456"}), apperrors.ErrAlreadyResolved)
	_, err = b.Pending(context.Background(), "a1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResolved)
}

func TestBridge_Dismiss(t *testing.T) {
	b := NewBridge()
	res := openAsync(b, context.Background(), ModalRequest{AttemptID: "a2"})

	_, err := b.Pending(context.Background(), "a2")
	require.NoError(t, err)
	require.NoError(t, b.Dismiss("a2"))

	r := <-res
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeDismissed, r.out.Kind)
}

func TestBridge_ResolveUnknown(t *testing.T) {
	b := NewBridge()
	err := b.Confirm("nope", Confirmation{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBridge_PendingBeforeOpenIsDropped(t *testing.T) {
	b := NewBridge()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Pending(ctx, "never-opened")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.sessions)
}

func TestBridge_ContextClosesSession(t *testing.T) {
	b := NewBridge()
	ctx, cancel := context.WithCancel(context.Background())
	res := openAsync(b, ctx, ModalRequest{AttemptID: "a3"})

	_, err := b.Pending(context.Background(), "a3")
	require.NoError(t, err)
	cancel()

	r := <-res
	assert.ErrorIs(t, r.err, apperrors.ErrSessionClosed)

	// the browser must not be told a callback landed after the close
	assert.ErrorIs(t, b.Confirm("a3", Confirmation{PaymentID: "pay_late"}), apperrors.ErrSessionClosed)
	assert.ErrorIs(t, b.Dismiss("a3"), apperrors.ErrSessionClosed)
	_, err = b.Pending(context.Background(), "a3")
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
}

func TestBridge_TombstonesAreBounded(t *testing.T) {
	b := NewBridge()
	b.mu.Lock()
	for i := 0; i < tombstoneCap+10; i++ {
		b.finishLocked(fmt.Sprintf("att-%d", i), apperrors.ErrAlreadyResolved)
	}
	b.finishLocked("att-4095", apperrors.ErrSessionClosed)
	b.mu.Unlock()
	assert.Len(t, b.tombstones, tombstoneCap)
	assert.Len(t, b.order, tombstoneCap)
	assert.ErrorIs(t, b.Confirm("att-4095", Confirmation{}), apperrors.ErrSessionClosed)
	assert.ErrorIs(t, b.Confirm("att-0", Confirmation{}), apperrors.ErrNotFound)
}

func TestAttemptContext(t *testing.T) {
	assert.Empty(t, AttemptFromContext(context.Background()))
	assert.Equal(t, "a1", AttemptFromContext(WithAttempt(context.Background(), "a1")))
}
