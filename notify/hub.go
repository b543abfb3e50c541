// Package notify collects user-visible notices and navigation targets for
// the storefront to pick up.
package notify

import (
	"context"
	"sync"
	"time"

	"checkout-service/events"
	"checkout-service/logger"
	"checkout-service/models"

	"go.uber.org/zap"
)

// per-user inbox size; older notices are dropped first
const defaultInboxLimit = 20

// Inbox is what a client drains on each poll.
type Inbox struct {
	Notices  []models.Notice `json:"notices"`
	Redirect string          `json:"redirect,omitempty"`
}

// Hub is fire-and-forget: Notify and Navigate never block on the event bus
// and never fail.
type Hub struct {
	mu        sync.Mutex
	notices   map[string][]models.Notice
	redirects map[string]string
	touched   map[string]time.Time
	limit     int

	publisher events.Publisher
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewHub(publisher events.Publisher) *Hub {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Hub{
		notices:   make(map[string][]models.Notice),
		redirects: make(map[string]string),
		touched:   make(map[string]time.Time),
		limit:     defaultInboxLimit,
		publisher: publisher,
		now:       time.Now,
	}
}

// Notify queues n for userID. Notices for an anonymous caller have no inbox
// to land in and are only logged.
func (h *Hub) Notify(ctx context.Context, userID string, n models.Notice) {
	if userID == "" {
		logger.Info(ctx, "notice for anonymous caller", zap.String("kind", n.Kind), zap.String("title", n.Title))
		return
	}
	if n.Variant == "" {
		n.Variant = models.NoticeDefault
	}
	n.CreatedAt = h.now().UTC()

	h.mu.Lock()
	inbox := append(h.notices[userID], n)
	if len(inbox) > h.limit {
		inbox = inbox[len(inbox)-h.limit:]
	}
	h.notices[userID] = inbox
	h.touched[userID] = n.CreatedAt
	h.mu.Unlock()

	logger.Debug(ctx, "notice queued",
		zap.String("user_id", userID),
		zap.String("kind", n.Kind),
		zap.String("title", n.Title),
	)

	h.publish(ctx, models.PaymentEvent{
		Type:      events.TypeNotice,
		UserID:    userID,
		ErrorKind: n.Kind,
		Message:   n.Title + ": " + n.Description,
		Timestamp: n.CreatedAt,
	})
}

// Navigate records route as the user's next redirect. A later call replaces
// an undrained one.
func (h *Hub) Navigate(ctx context.Context, userID, route string) {
	if userID == "" {
		return
	}
	h.mu.Lock()
	h.redirects[userID] = route
	h.touched[userID] = h.now().UTC()
	h.mu.Unlock()
	logger.Debug(ctx, "navigation queued", zap.String("user_id", userID), zap.String("route", route))
}

// Drain returns and clears everything queued for userID.
func (h *Hub) Drain(userID string) Inbox {
	h.mu.Lock()
	defer h.mu.Unlock()

	in := Inbox{Notices: h.notices[userID], Redirect: h.redirects[userID]}
	if in.Notices == nil {
		in.Notices = []models.Notice{}
	}
	delete(h.notices, userID)
	delete(h.redirects, userID)
	delete(h.touched, userID)
	return in
}

// Sweep drops inboxes nobody drained within ttl and returns how many went.
func (h *Hub) Sweep(ttl time.Duration) int {
	cutoff := h.now().UTC().Add(-ttl)
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for id, at := range h.touched {
		if at.Before(cutoff) {
			delete(h.notices, id)
			delete(h.redirects, id)
			delete(h.touched, id)
			removed++
		}
	}
	return removed
}

func (h *Hub) publish(ctx context.Context, evt models.PaymentEvent) {
	rid := logger.RequestID(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		pubCtx, cancel := context.WithTimeout(logger.WithContext(context.Background(), rid), 5*time.Second)
		defer cancel()
		if err := h.publisher.Publish(pubCtx, evt); err != nil {
			logger.Warn(pubCtx, "notice publish failed", zap.String("user_id", evt.UserID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight publishes finish. Used on shutdown.
func (h *Hub) Wait() {
	h.wg.Wait()
}
