package memory

import (
	"context"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type clientRepository struct {
	store *Store
}

// NewClientRepository возвращает in-memory реализацию ClientRepository.
func NewClientRepository(store *Store) domain.ClientRepository {
	return &clientRepository{store: store}
}

func (r *clientRepository) Get(_ context.Context, id string) (domain.Client, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	client, ok := r.store.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return client, nil
}

type addressRepository struct {
	store *Store
}

// NewAddressRepository возвращает in-memory реализацию AddressRepository.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepository{store: store}
}

func (r *addressRepository) Get(_ context.Context, id string) (domain.Address, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	address, ok := r.store.addresses[id]
	if !ok {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}

type variantRepository struct {
	store *Store
}

// NewProductVariantRepository возвращает in-memory реализацию каталога.
func NewProductVariantRepository(store *Store) domain.ProductVariantRepository {
	return &variantRepository{store: store}
}

func (r *variantRepository) Get(_ context.Context, id string) (domain.ProductVariant, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	variant, ok := r.store.variants[id]
	if !ok {
		return domain.ProductVariant{}, domain.ErrProductVariantNotFound
	}
	return variant, nil
}

var (
	_ domain.ClientRepository         = (*clientRepository)(nil)
	_ domain.AddressRepository        = (*addressRepository)(nil)
	_ domain.ProductVariantRepository = (*variantRepository)(nil)
)
