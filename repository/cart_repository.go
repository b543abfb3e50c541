package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/cart"
	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// CartRepository is the Redis-backed cart.Store. Each cart is one JSON value
// under cart:user:<id> with a sliding TTL.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cart.Store = (*CartRepository)(nil)

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *CartRepository) getKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// GetCart returns nil, nil when the user has no cart.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c models.Cart
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode cart for user %s: %w", userID, err)
	}
	return &c, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = time.Now()

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(c.UserID), data, r.ttl).Err()
}

func (r *CartRepository) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	c, err := r.GetCart(ctx, userID)
	if err != nil || c == nil {
		return nil, err
	}
	return c.Items, nil
}

func (r *CartRepository) Add(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	c, err := r.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	c.Items = cart.Merge(c.Items, item)

	if err := r.SaveCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove drops itemID from the cart. A missing cart is reported as nil, nil.
func (r *CartRepository) Remove(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	c, err := r.GetCart(ctx, userID)
	if err != nil || c == nil {
		return nil, err
	}

	kept := make([]models.CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	c.Items = kept

	if err := r.SaveCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.getKey(userID)).Err()
}
