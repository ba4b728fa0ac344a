package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type orderRepository struct {
	q querier
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{q: store.DB()}
}

func newOrderRepositoryTx(tx *sql.Tx) domain.OrderRepository {
	return &orderRepository{q: tx}
}

func (r *orderRepository) Insert(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	shipping := order.ShippingAddress
	billing := order.BillingAddress
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, reference_code, client_id, coupon_id, status, currency,
			items_total_minor, discount_minor, shipping_minor,
			shipping_street, shipping_number, shipping_complement, shipping_district,
			shipping_city, shipping_state, shipping_postal_code, shipping_country,
			billing_street, billing_number, billing_complement, billing_district,
			billing_city, billing_state, billing_postal_code, billing_country,
			notes, version, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,
			$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24,$25,
			$26,$27,$28,$29
		)
	`,
		order.ID, order.ReferenceCode, order.ClientID, nullString(order.CouponID),
		string(order.Status), order.ItemsTotal.Currency,
		order.ItemsTotal.AmountMinor, order.Discount.AmountMinor, order.Shipping.AmountMinor,
		shipping.Street, shipping.Number, shipping.Complement, shipping.District,
		shipping.City, shipping.State, shipping.PostalCode, shipping.Country,
		billing.Street, billing.Number, billing.Complement, billing.District,
		billing.City, billing.State, billing.PostalCode, billing.Country,
		order.Notes, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items() {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_variant_id, sku, name,
				quantity, currency, unit_price_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID, order.ID, item.ProductVariantID, item.SKU, item.Name,
			item.Quantity, item.UnitPrice.Currency, item.UnitPrice.AmountMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET coupon_id = $1,
		    status = $2,
		    discount_minor = $3,
		    notes = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
	`,
		nullString(order.CouponID),
		string(order.Status),
		order.Discount.AmountMinor,
		order.Notes,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}

	order.Version++
	return nil
}

func (r *orderRepository) AddPayment(ctx context.Context, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, status, method, currency, amount_minor,
			transaction_id, decline_reason, processed_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		payment.ID, payment.OrderID, string(payment.Status), string(payment.Method),
		payment.Amount.Currency, payment.Amount.AmountMinor,
		payment.TransactionID, payment.DeclineReason, payment.ProcessedAt, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	state, err := r.scanOrder(r.q.QueryRowContext(ctx, selectOrderQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadChildren(ctx, &state); err != nil {
		return nil, err
	}

	return domain.RestoreOrder(state), nil
}

func (r *orderRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := selectOrderQuery + `
		WHERE client_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $2", clientID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	states := make([]domain.OrderState, 0)
	for rows.Next() {
		state, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	orders := make([]*domain.Order, 0, len(states))
	for idx := range states {
		if err := r.loadChildren(ctx, &states[idx]); err != nil {
			return nil, err
		}
		orders = append(orders, domain.RestoreOrder(states[idx]))
	}

	return orders, nil
}

const selectOrderQuery = `
	SELECT id, reference_code, client_id, coupon_id, status, currency,
	       items_total_minor, discount_minor, shipping_minor,
	       shipping_street, shipping_number, shipping_complement, shipping_district,
	       shipping_city, shipping_state, shipping_postal_code, shipping_country,
	       billing_street, billing_number, billing_complement, billing_district,
	       billing_city, billing_state, billing_postal_code, billing_country,
	       notes, version, created_at, updated_at
	FROM orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.OrderState, error) {
	var (
		state    domain.OrderState
		status   string
		couponID sql.NullString
		currency string
	)
	err := row.Scan(
		&state.ID, &state.ReferenceCode, &state.ClientID, &couponID, &status, &currency,
		&state.ItemsTotal.AmountMinor, &state.Discount.AmountMinor, &state.Shipping.AmountMinor,
		&state.ShippingAddress.Street, &state.ShippingAddress.Number,
		&state.ShippingAddress.Complement, &state.ShippingAddress.District,
		&state.ShippingAddress.City, &state.ShippingAddress.State,
		&state.ShippingAddress.PostalCode, &state.ShippingAddress.Country,
		&state.BillingAddress.Street, &state.BillingAddress.Number,
		&state.BillingAddress.Complement, &state.BillingAddress.District,
		&state.BillingAddress.City, &state.BillingAddress.State,
		&state.BillingAddress.PostalCode, &state.BillingAddress.Country,
		&state.Notes, &state.Version, &state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		return domain.OrderState{}, err
	}

	state.Status = domain.OrderStatus(status)
	state.CouponID = couponID.String
	state.ItemsTotal.Currency = currency
	state.Discount.Currency = currency
	state.Shipping.Currency = currency
	return state, nil
}

func (r *orderRepository) loadChildren(ctx context.Context, state *domain.OrderState) error {
	items, err := r.loadItems(ctx, state.ID)
	if err != nil {
		return err
	}
	state.Items = items

	payments, err := r.loadPayments(ctx, state.ID)
	if err != nil {
		return err
	}
	state.Payments = payments
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_variant_id, sku, name, quantity, currency, unit_price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductVariantID, &item.SKU, &item.Name,
			&item.Quantity, &item.UnitPrice.Currency, &item.UnitPrice.AmountMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = orderID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) loadPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, status, method, currency, amount_minor, transaction_id, decline_reason, processed_at, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var (
			payment     domain.Payment
			status      string
			method      string
			processedAt sql.NullTime
		)
		if err := rows.Scan(
			&payment.ID, &status, &method,
			&payment.Amount.Currency, &payment.Amount.AmountMinor,
			&payment.TransactionID, &payment.DeclineReason, &processedAt, &payment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payment.OrderID = orderID
		payment.Status = domain.PaymentStatus(status)
		payment.Method = domain.PaymentMethod(method)
		if processedAt.Valid {
			at := processedAt.Time
			payment.ProcessedAt = &at
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
