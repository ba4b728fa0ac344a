package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type clientRepository struct {
	q querier
}

// NewClientRepository создаёт PostgreSQL-реализацию ClientRepository.
func NewClientRepository(store *Store) domain.ClientRepository {
	return &clientRepository{q: store.DB()}
}

func (r *clientRepository) Get(ctx context.Context, id string) (domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var client domain.Client
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, email, created_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&client.ID, &client.Name, &client.Email, &client.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("select client: %w", err)
	}

	return client, nil
}

type addressRepository struct {
	q querier
}

// NewAddressRepository создаёт PostgreSQL-реализацию AddressRepository.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepository{q: store.DB()}
}

func (r *addressRepository) Get(ctx context.Context, id string) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var address domain.Address
	err := r.q.QueryRowContext(ctx, `
		SELECT id, client_id, street, number, complement, district, city, state, postal_code, country
		FROM addresses
		WHERE id = $1
	`, id).Scan(
		&address.ID, &address.ClientID, &address.Street, &address.Number,
		&address.Complement, &address.District, &address.City, &address.State,
		&address.PostalCode, &address.Country,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}

	return address, nil
}

type variantRepository struct {
	q querier
}

// NewProductVariantRepository создаёт PostgreSQL-реализацию каталога.
func NewProductVariantRepository(store *Store) domain.ProductVariantRepository {
	return &variantRepository{q: store.DB()}
}

func (r *variantRepository) Get(ctx context.Context, id string) (domain.ProductVariant, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var variant domain.ProductVariant
	err := r.q.QueryRowContext(ctx, `
		SELECT id, sku, name, currency, price_minor
		FROM product_variants
		WHERE id = $1
	`, id).Scan(&variant.ID, &variant.SKU, &variant.Name, &variant.Price.Currency, &variant.Price.AmountMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductVariant{}, domain.ErrProductVariantNotFound
		}
		return domain.ProductVariant{}, fmt.Errorf("select product variant: %w", err)
	}

	return variant, nil
}

var (
	_ domain.ClientRepository         = (*clientRepository)(nil)
	_ domain.AddressRepository        = (*addressRepository)(nil)
	_ domain.ProductVariantRepository = (*variantRepository)(nil)
)
