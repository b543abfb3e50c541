package gateway

import (
	"time"

	"checkout-service/logger"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// NewOrderBreaker trips after five consecutive CreateOrder failures and
// lets a single trial request through after 30s.
func NewOrderBreaker(name string) *gobreaker.CircuitBreaker[GatewayOrder] {
	return gobreaker.NewCircuitBreaker[GatewayOrder](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warn("gateway circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
