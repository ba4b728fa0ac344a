package memory

import (
	"context"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

func (r *cartRepository) GetByClientID(_ context.Context, clientID string) (*domain.Cart, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cartID, ok := r.store.cartIDByClient[clientID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	record := cloneCartRecord(r.store.carts[cartID])
	return domain.RestoreCart(record.ID, record.ClientID, record.Items,
		record.Version, record.CreatedAt, record.UpdatedAt), nil
}

func (r *cartRepository) Insert(_ context.Context, cart *domain.Cart) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.carts[cart.ID]; exists {
		return domain.ErrVersionConflict
	}
	// Одна корзина на клиента: повторная вставка — конфликт.
	if _, exists := r.store.cartIDByClient[cart.ClientID]; exists {
		return domain.ErrVersionConflict
	}

	r.store.carts[cart.ID] = cartRecord{
		ID:        cart.ID,
		ClientID:  cart.ClientID,
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		Items:     cart.Items(),
	}
	r.store.cartIDByClient[cart.ClientID] = cart.ID
	return nil
}

func (r *cartRepository) Update(_ context.Context, cart *domain.Cart) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.carts[cart.ID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if current.Version != cart.Version {
		return domain.ErrVersionConflict
	}

	r.store.carts[cart.ID] = cartRecord{
		ID:        cart.ID,
		ClientID:  cart.ClientID,
		Version:   cart.Version + 1,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		Items:     cart.Items(),
	}
	cart.Version++
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
