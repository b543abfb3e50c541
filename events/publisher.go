// Package events publishes payment and notice events to the configured bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/models"
)

// Event types.
const (
	TypePaymentSucceeded = "payment_succeeded"
	TypePaymentFailed    = "payment_failed"
	TypeNotice           = "notice"
	TypeOrderCreated     = "order_created"
)

// Publisher sends events to downstream consumers. Publish may block on the
// network; callers pass a bounded context.
type Publisher interface {
	Publish(ctx context.Context, evt models.PaymentEvent) error
	Close() error
}

// Nop discards every event. Used when EVENT_BUS=none.
type Nop struct{}

func (Nop) Publish(context.Context, models.PaymentEvent) error { return nil }
func (Nop) Close() error                                       { return nil }

func encode(evt models.PaymentEvent) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", evt.Type, err)
	}
	return data, nil
}
