package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type cartRepository struct {
	q querier
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{q: store.DB()}
}

func newCartRepositoryTx(tx *sql.Tx) domain.CartRepository {
	return &cartRepository{q: tx}
}

func (r *cartRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		id        string
		version   int64
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, version, created_at, updated_at
		FROM carts
		WHERE client_id = $1
	`, clientID).Scan(&id, &version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.RestoreCart(id, clientID, items, version, createdAt.Time, updatedAt.Time), nil
}

func (r *cartRepository) Insert(ctx context.Context, cart *domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO carts (id, client_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cart.ID, cart.ClientID, cart.Version, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}

	return r.insertItems(ctx, cart)
}

// Update перезаписывает корзину и её позиции. Предикат по version закрывает
// гонку двух конкурентных изменений: проигравший получает ErrVersionConflict.
func (r *cartRepository) Update(ctx context.Context, cart *domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE carts
		SET version = version + 1,
		    updated_at = $1
		WHERE id = $2
		  AND version = $3
	`, cart.UpdatedAt, cart.ID, cart.Version)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.cartExists(ctx, cart.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrCartNotFound
		}
		return domain.ErrVersionConflict
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if err := r.insertItems(ctx, cart); err != nil {
		return err
	}

	cart.Version++
	return nil
}

func (r *cartRepository) insertItems(ctx context.Context, cart *domain.Cart) error {
	for _, item := range cart.Items() {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO cart_items (
				id, cart_id, product_variant_id, quantity, currency, unit_price_minor, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			item.ID, cart.ID, item.ProductVariantID, item.Quantity,
			item.UnitPrice.Currency, item.UnitPrice.AmountMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	return nil
}

func (r *cartRepository) loadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_variant_id, quantity, currency, unit_price_minor, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.ProductVariantID, &item.Quantity,
			&item.UnitPrice.Currency, &item.UnitPrice.AmountMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.CartID = cartID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) cartExists(ctx context.Context, cartID string) (bool, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM carts WHERE id = $1`, cartID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check cart exists: %w", err)
}

var _ domain.CartRepository = (*cartRepository)(nil)
