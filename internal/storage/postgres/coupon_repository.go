package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type couponRepository struct {
	q querier
}

// NewCouponRepository создаёт PostgreSQL-реализацию CouponRepository.
func NewCouponRepository(store *Store) domain.CouponRepository {
	return &couponRepository{q: store.DB()}
}

func newCouponRepositoryTx(tx *sql.Tx) domain.CouponRepository {
	return &couponRepository{q: tx}
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		coupon           domain.Coupon
		scope            string
		clientID         sql.NullString
		maxUses          sql.NullInt32
		discountMinor    sql.NullInt64
		discountCurrency sql.NullString
		minPurchaseMinor sql.NullInt64
		minPurchaseCur   sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, code, discount_percent, discount_amount_minor, discount_amount_currency,
		       valid_from, valid_until, max_uses, times_used,
		       min_purchase_minor, min_purchase_currency,
		       active, scope, client_id, version, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountPercent, &discountMinor, &discountCurrency,
		&coupon.ValidFrom, &coupon.ValidUntil, &maxUses, &coupon.TimesUsed,
		&minPurchaseMinor, &minPurchaseCur,
		&coupon.Active, &scope, &clientID, &coupon.Version, &coupon.CreatedAt, &coupon.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("select coupon: %w", err)
	}

	coupon.Scope = domain.CouponScope(scope)
	coupon.ClientID = clientID.String
	if maxUses.Valid {
		value := maxUses.Int32
		coupon.MaxUses = &value
	}
	if discountMinor.Valid && discountCurrency.Valid {
		amount := domain.Money{AmountMinor: discountMinor.Int64, Currency: discountCurrency.String}
		coupon.DiscountAmount = &amount
	}
	if minPurchaseMinor.Valid && minPurchaseCur.Valid {
		amount := domain.Money{AmountMinor: minPurchaseMinor.Int64, Currency: minPurchaseCur.String}
		coupon.MinPurchaseAmount = &amount
	}

	return &coupon, nil
}

// RedeemUse инкрементирует счётчик использований одним UPDATE с квотой в
// предикате. Проверка и инкремент неразделимы на стороне базы, поэтому два
// конкурентных применения не могут вместе превысить max_uses.
func (r *couponRepository) RedeemUse(ctx context.Context, couponID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE coupons
		SET times_used = times_used + 1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND (max_uses IS NULL OR times_used < max_uses)
	`, couponID)
	if err != nil {
		return fmt.Errorf("redeem coupon use: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.couponExists(ctx, couponID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrCouponNotFound
		}
		return domain.ErrCouponQuotaExceeded
	}

	return nil
}

func (r *couponRepository) couponExists(ctx context.Context, couponID string) (bool, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM coupons WHERE id = $1`, couponID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check coupon exists: %w", err)
}

var _ domain.CouponRepository = (*couponRepository)(nil)
