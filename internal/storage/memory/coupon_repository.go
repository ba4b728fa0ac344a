package memory

import (
	"context"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type couponRepository struct {
	store *Store
}

// NewCouponRepository возвращает in-memory реализацию CouponRepository.
func NewCouponRepository(store *Store) domain.CouponRepository {
	return &couponRepository{store: store}
}

func (r *couponRepository) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.couponIDByCode[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	coupon := cloneCoupon(r.store.coupons[id])
	return &coupon, nil
}

// RedeemUse инкрементирует счётчик использований под общим мьютексом:
// проверка квоты и инкремент неразделимы, поэтому две конкурентные
// попытки не могут вместе превысить max_uses.
func (r *couponRepository) RedeemUse(_ context.Context, couponID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	coupon, ok := r.store.coupons[couponID]
	if !ok {
		return domain.ErrCouponNotFound
	}
	if coupon.MaxUses != nil && coupon.TimesUsed >= *coupon.MaxUses {
		return domain.ErrCouponQuotaExceeded
	}

	coupon.TimesUsed++
	coupon.Version++
	r.store.coupons[couponID] = coupon
	return nil
}

var _ domain.CouponRepository = (*couponRepository)(nil)
