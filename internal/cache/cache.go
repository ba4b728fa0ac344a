package cache

import (
	"context"
	"errors"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// CartCache — read-through кэш корзин поверх основного хранилища.
type CartCache interface {
	Get(ctx context.Context, clientID string) (*domain.Cart, error)
	Set(ctx context.Context, clientID string, cart *domain.Cart) error
	Delete(ctx context.Context, clientID string) error
}

// ErrCacheMiss возвращается, когда корзины нет в кэше.
var ErrCacheMiss = errors.New("cache miss")

// Noop — заглушка кэша: каждый Get — промах. Используется, когда Redis
// не сконфигурирован.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, *domain.Cart) error   { return nil }
func (Noop) Delete(context.Context, string) error              { return nil }

var _ CartCache = Noop{}
