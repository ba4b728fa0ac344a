package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// RedisCache хранит сериализованные корзины с TTL. К TTL добавляется
// случайный сдвиг, чтобы ключи не истекали одновременно.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewRedisCache создаёт кэш корзин поверх клиента Redis.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, clientID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedCart
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cached cart failed: %w", err)
	}

	return domain.RestoreCart(cached.ID, cached.ClientID, cached.Items,
		cached.Version, cached.CreatedAt, cached.UpdatedAt), nil
}

func (r *RedisCache) Set(ctx context.Context, clientID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cachedCart{
		ID:        cart.ID,
		ClientID:  cart.ClientID,
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		Items:     cart.Items(),
	})
	if err != nil {
		return fmt.Errorf("marshal cached cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(clientID), payload, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, cacheKey(clientID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

type cachedCart struct {
	ID        string            `json:"id"`
	ClientID  string            `json:"client_id"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     []domain.CartItem `json:"items"`
}

func cacheKey(clientID string) string {
	return fmt.Sprintf("cart:%s", clientID)
}

var _ CartCache = (*RedisCache)(nil)
