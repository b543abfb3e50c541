package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/apperrors"
	"checkout-service/events"
	"checkout-service/logger"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GuestUserID is stored on orders created without a signed-in user.
const GuestUserID = "guest"

// OrderCreator persists a draft order and returns its id.
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft models.DraftOrder) (string, error)
}

// OrderReader returns one of the caller's orders.
type OrderReader interface {
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
}

// CountRecorder is satisfied by *awspkg.MetricsClient.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type OrderService struct {
	repo       repository.OrderRepository
	publisher  events.Publisher
	cloudWatch CountRecorder
	now        func() time.Time
}

func NewOrderService(repo repository.OrderRepository, publisher events.Publisher, cloudWatch CountRecorder) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{repo: repo, publisher: publisher, cloudWatch: cloudWatch, now: time.Now}
}

// CreateOrder stores the draft with its items. The order_created event and
// the CloudWatch count are best-effort.
func (s *OrderService) CreateOrder(ctx context.Context, draft models.DraftOrder) (string, error) {
	if len(draft.Items) == 0 {
		return "", fmt.Errorf("order has no items")
	}
	userID := strings.TrimSpace(draft.UserID)
	if userID == "" {
		userID = GuestUserID
	}
	status := draft.Status
	if status == "" {
		status = models.OrderStatusPending
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Total:           draft.Total,
		Status:          status,
		ShippingName:    draft.ShippingAddress.FullName,
		ShippingAddress: draft.ShippingAddress.Address,
		ShippingCity:    draft.ShippingAddress.City,
		ShippingPostal:  draft.ShippingAddress.PostalCode,
	}
	order.OrderItems = make([]models.OrderItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	orderID := order.ID.String()
	logger.Info(ctx, "draft order created",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.String("total", draft.Total.StringFixed(2)),
		zap.Int("items", len(order.OrderItems)),
	)

	evt := models.PaymentEvent{
		Type:      events.TypeOrderCreated,
		OrderID:   orderID,
		UserID:    userID,
		Message:   status,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.Warn(ctx, "failed to publish order_created event", zap.String("order_id", orderID), zap.Error(err))
	}
	if s.cloudWatch != nil {
		if err := s.cloudWatch.RecordCount(ctx, awspkg.MetricOrdersCreated, map[string]string{"Status": status}); err != nil {
			logger.Debug(ctx, "cloudwatch order metric failed", zap.Error(err))
		}
	}
	return orderID, nil
}

// GetOrder loads orderID with its items if it belongs to userID. Unknown,
// malformed and foreign ids are all reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	notFound := apperrors.WithMessage(apperrors.ErrNotFound, "order not found")
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, notFound
	}

	order, err := s.repo.FindByIDAndUserID(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		logger.Error(ctx, "order lookup failed", err, zap.String("order_id", orderID))
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return order, nil
}
