package payment

import (
	"context"
	"time"
	"unicode/utf8"

	"checkout-service/apperrors"
	"checkout-service/events"
	"checkout-service/gateway"
	"checkout-service/logger"
	"checkout-service/metrics"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Record describes a finished attempt.
type Record struct {
	AttemptID  string
	UserID     string
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	Result     models.PaymentResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists and announces finished attempts. It must not fail the
// attempt; errors are logged.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// CountRecorder is the CloudWatch side of the recorder.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// AuditRecorder writes the audit row, publishes the event and bumps the
// payment counters.
type AuditRecorder struct {
	Repo       repository.PaymentRepository
	Publisher  events.Publisher
	Metrics    *metrics.ServerMetrics
	CloudWatch CountRecorder
	Provider   string
}

func (r *AuditRecorder) Record(ctx context.Context, rec Record) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	minor, _ := gateway.MinorUnits(rec.Amount)
	status := models.AttemptStatusFailed
	evtType := events.TypePaymentFailed
	if rec.Result.Success {
		status = models.AttemptStatusSucceeded
		evtType = events.TypePaymentSucceeded
	}

	if r.Repo != nil {
		row := toAttemptRow(rec, r.Provider, status, minor)
		if err := r.Repo.CreateAttempt(ctx, row); err != nil {
			logger.Error(ctx, "failed to store payment attempt", err, zap.String("attempt_id", rec.AttemptID))
		}
	}

	if r.Publisher != nil {
		evt := models.PaymentEvent{
			Type:          evtType,
			AttemptID:     rec.AttemptID,
			OrderID:       rec.OrderID,
			UserID:        rec.UserID,
			Provider:      r.Provider,
			TransactionID: rec.Result.TransactionID,
			Amount:        minor,
			Currency:      rec.Currency,
			ErrorKind:     rec.Result.ErrorKind,
			Message:       rec.Result.Error,
			Timestamp:     rec.FinishedAt.UTC(),
		}
		if err := r.Publisher.Publish(ctx, evt); err != nil {
			logger.Warn(ctx, "failed to publish payment event", zap.String("attempt_id", rec.AttemptID), zap.Error(err))
		}
	}

	r.Metrics.ObservePayment(r.Provider, status, rec.Result.ErrorKind, rec.Currency, minor)

	if r.CloudWatch != nil {
		name := awspkg.MetricPaymentFailed
		if rec.Result.Success {
			name = awspkg.MetricPaymentSucceeded
		}
		dims := map[string]string{"Provider": r.Provider, "Currency": rec.Currency}
		if kind := rec.Result.ErrorKind; kind != "" {
			dims["ErrorKind"] = kind
		}
		if err := r.CloudWatch.RecordCount(ctx, name, dims); err != nil {
			logger.Debug(ctx, "cloudwatch payment metric failed", zap.Error(err))
		}
	}
}

func toAttemptRow(rec Record, provider, status string, minor int64) *models.PaymentAttempt {
	id, err := uuid.Parse(rec.AttemptID)
	if err != nil {
		id = uuid.New()
	}
	row := &models.PaymentAttempt{
		ID:           id,
		UserID:       rec.UserID,
		OrderID:      rec.OrderID,
		Amount:       minor,
		Currency:     rec.Currency,
		Provider:     provider,
		GatewayOrder: rec.Result.GatewayOrderID,
		Status:       status,
		ErrorKind:    rec.Result.ErrorKind,
		ErrorMessage: truncate(rec.Result.Error, 255),
	}
	finished := rec.FinishedAt
	if rec.Result.Success {
		tx := rec.Result.TransactionID
		row.TransactionID = &tx
		row.SucceededAt = &finished
	} else {
		row.FailedAt = &finished
	}
	if row.ErrorKind == "" && !rec.Result.Success {
		row.ErrorKind = apperrors.ErrGatewayFailure.Kind
	}
	return row
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
