package memory

import (
	"context"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// unitOfWork реализует транзакцию поверх снимка состояния: Begin
// запоминает состояние, Rollback возвращает его, Commit отбрасывает
// снимок. Rollback на неактивной транзакции — no-op.
type unitOfWork struct {
	store    *Store
	snapshot *storeSnapshot
	active   bool

	carts   domain.CartRepository
	coupons domain.CouponRepository
	orders  domain.OrderRepository
}

// NewUnitOfWork создаёт транзакцию над in-memory хранилищем.
func NewUnitOfWork(store *Store) domain.UnitOfWork {
	return &unitOfWork{
		store:   store,
		carts:   NewCartRepository(store),
		coupons: NewCouponRepository(store),
		orders:  NewOrderRepository(store),
	}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return domain.ErrTransactionActive
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.snapshot = u.store.snapshot()
	u.active = true
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.active {
		return domain.ErrNoActiveTransaction
	}
	u.snapshot = nil
	u.active = false
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.store.restore(u.snapshot)
	u.snapshot = nil
	u.active = false
	return nil
}

func (u *unitOfWork) HasActiveTransaction() bool {
	return u.active
}

func (u *unitOfWork) Carts() domain.CartRepository {
	return u.carts
}

func (u *unitOfWork) Coupons() domain.CouponRepository {
	return u.coupons
}

func (u *unitOfWork) Orders() domain.OrderRepository {
	return u.orders
}

// UnitOfWorkFactory выдаёт по новой транзакции на каждый сценарий.
type UnitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory создаёт фабрику транзакций над хранилищем.
func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

// New возвращает свежий UnitOfWork.
func (f *UnitOfWorkFactory) New() domain.UnitOfWork {
	return NewUnitOfWork(f.store)
}

var (
	_ domain.UnitOfWork        = (*unitOfWork)(nil)
	_ domain.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
)
