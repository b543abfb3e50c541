package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"checkout-service/apperrors"
	"checkout-service/gateway"
	"checkout-service/logger"
	"checkout-service/models"
	"checkout-service/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Payer presses "Pay Now" for the caller. *checkout.Page satisfies it.
type Payer interface {
	Pay(ctx context.Context, orderID string) (*payment.Attempt, error)
}

// AttemptFinder is satisfied by *payment.Registry.
type AttemptFinder interface {
	Find(userID, attemptID string) (*payment.Attempt, bool)
}

// ModalSessions is the HTTP side of the gateway bridge.
type ModalSessions interface {
	Pending(ctx context.Context, attemptID string) (gateway.ModalRequest, error)
	Confirm(attemptID string, c gateway.Confirmation) error
	Dismiss(attemptID string) error
}

// AttemptHistory reads finished attempts back from the audit trail once
// they are no longer held in memory. repository.PaymentRepository
// satisfies it.
type AttemptHistory interface {
	GetAttempt(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error)
}

// how long Pay waits for the widget options before answering 202 without them
const defaultOpenWait = 15 * time.Second

type PaymentController struct {
	payer    Payer
	attempts AttemptFinder
	sessions ModalSessions
	history  AttemptHistory
	openWait time.Duration
}

// NewPaymentController wires the payment endpoints. history may be nil, in
// which case only attempts still in memory are reported.
func NewPaymentController(payer Payer, attempts AttemptFinder, sessions ModalSessions, history AttemptHistory) *PaymentController {
	return &PaymentController{payer: payer, attempts: attempts, sessions: sessions, history: history, openWait: defaultOpenWait}
}

type payRequest struct {
	OrderID string `json:"order_id" binding:"omitempty,max=64"`
}

// confirmRequest accepts the widget's handler payload as-is, or the
// provider-neutral names.
type confirmRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	PaymentID         string `json:"payment_id"`
	OrderID           string `json:"order_id"`
	Signature         string `json:"signature"`
}

func (r confirmRequest) confirmation() gateway.Confirmation {
	return gateway.Confirmation{
		PaymentID: strings.TrimSpace(firstNonEmpty(r.RazorpayPaymentID, r.PaymentID)),
		OrderID:   strings.TrimSpace(firstNonEmpty(r.RazorpayOrderID, r.OrderID)),
		Signature: strings.TrimSpace(firstNonEmpty(r.RazorpaySignature, r.Signature)),
	}
}

type attemptResponse struct {
	AttemptID string                `json:"attempt_id"`
	OrderID   string                `json:"order_id"`
	Status    string                `json:"status"`
	Modal     *gateway.ModalRequest `json:"modal,omitempty"`
	Result    *models.PaymentResult `json:"result,omitempty"`
}

// Pay starts an attempt and answers 202 with the widget options once the
// gateway order exists. An attempt that ends before the widget opens is
// answered with its outcome.
func (pc *PaymentController) Pay(c *gin.Context) {
	var req payRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "invalid payload"))
			return
		}
	}

	a, err := pc.payer.Pay(c.Request.Context(), req.OrderID)
	if err != nil {
		c.Error(err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pc.openWait)
	defer cancel()

	type pending struct {
		modal gateway.ModalRequest
		err   error
	}
	ch := make(chan pending, 1)
	go func() {
		m, err := pc.sessions.Pending(ctx, a.ID)
		ch <- pending{modal: m, err: err}
	}()

	select {
	case <-a.Done():
		pc.respondOutcome(c, a)
	case p := <-ch:
		if p.err == nil {
			c.JSON(http.StatusAccepted, attemptResponse{
				AttemptID: a.ID,
				OrderID:   a.OrderID,
				Status:    payment.AwaitingGateway.String(),
				Modal:     &p.modal,
			})
			return
		}
		if errors.Is(p.err, apperrors.ErrAlreadyResolved) || errors.Is(p.err, apperrors.ErrSessionClosed) {
			pc.awaitOutcome(c, a)
			return
		}
		// widget not ready in time; the client polls the status endpoint
		logger.Warn(c, "payment widget not ready", zap.String("attempt_id", a.ID), zap.Error(p.err))
		c.JSON(http.StatusAccepted, attemptResponse{AttemptID: a.ID, OrderID: a.OrderID, Status: payment.Validating.String()})
	}
}

// Status reports a finished attempt's outcome, or that it is still running.
func (pc *PaymentController) Status(c *gin.Context) {
	userID := currentUserID(c)
	a, ok := pc.attempts.Find(userID, c.Param("id"))
	if !ok {
		pc.recordedStatus(c, userID, c.Param("id"))
		return
	}
	if o, done := a.Outcome(); done {
		c.JSON(http.StatusOK, outcomeResponse(a, o))
		return
	}
	c.JSON(http.StatusOK, attemptResponse{AttemptID: a.ID, OrderID: a.OrderID, Status: "processing"})
}

// recordedStatus answers from the audit row when the attempt has been
// replaced by a newer one or evicted.
func (pc *PaymentController) recordedStatus(c *gin.Context, userID, attemptID string) {
	notFound := apperrors.WithMessage(apperrors.ErrNotFound, "payment attempt not found")
	id, err := uuid.Parse(attemptID)
	if pc.history == nil || err != nil {
		c.Error(notFound)
		return
	}

	row, err := pc.history.GetAttempt(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.Error(notFound)
		return
	}
	if err != nil {
		logger.Error(c, "payment attempt lookup failed", err, zap.String("attempt_id", attemptID))
		c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if row.UserID != userID {
		c.Error(notFound)
		return
	}

	res := models.PaymentResult{
		Success:        row.Status == models.AttemptStatusSucceeded,
		Error:          row.ErrorMessage,
		ErrorKind:      row.ErrorKind,
		GatewayOrderID: row.GatewayOrder,
	}
	if row.TransactionID != nil {
		res.TransactionID = *row.TransactionID
	}
	c.JSON(http.StatusOK, attemptResponse{AttemptID: row.ID.String(), OrderID: row.OrderID, Status: row.Status, Result: &res})
}

// Confirm is the widget's success handler.
func (pc *PaymentController) Confirm(c *gin.Context) {
	a, ok := pc.attempts.Find(currentUserID(c), c.Param("id"))
	if !ok {
		c.Error(apperrors.WithMessage(apperrors.ErrNotFound, "payment attempt not found"))
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "invalid payload"))
		return
	}
	conf := req.confirmation()
	if conf.PaymentID == "" {
		c.Error(apperrors.WithMessage(apperrors.ErrBadRequest, "payment_id is required"))
		return
	}

	if err := pc.sessions.Confirm(a.ID, conf); err != nil {
		c.Error(err)
		return
	}
	pc.awaitOutcome(c, a)
}

// Dismiss is the widget's modal.ondismiss.
func (pc *PaymentController) Dismiss(c *gin.Context) {
	a, ok := pc.attempts.Find(currentUserID(c), c.Param("id"))
	if !ok {
		c.Error(apperrors.WithMessage(apperrors.ErrNotFound, "payment attempt not found"))
		return
	}
	if err := pc.sessions.Dismiss(a.ID); err != nil {
		c.Error(err)
		return
	}
	pc.awaitOutcome(c, a)
}

func (pc *PaymentController) awaitOutcome(c *gin.Context, a *payment.Attempt) {
	select {
	case <-a.Done():
		pc.respondOutcome(c, a)
	case <-c.Request.Context().Done():
		c.Error(c.Request.Context().Err())
	}
}

func (pc *PaymentController) respondOutcome(c *gin.Context, a *payment.Attempt) {
	o, _ := a.Outcome()
	status := http.StatusOK
	if !o.Result.Success {
		status = apperrors.ForKind(o.Result.ErrorKind).Code
	}
	c.JSON(status, outcomeResponse(a, o))
}

func outcomeResponse(a *payment.Attempt, o payment.Outcome) attemptResponse {
	res := o.Result
	return attemptResponse{AttemptID: a.ID, OrderID: a.OrderID, Status: o.Status, Result: &res}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
