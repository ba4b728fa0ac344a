package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// unitOfWork привязывает репозитории к одному *sql.Tx. Хэндл транзакции
// принадлежит ровно одному сценарию; Rollback на неактивной транзакции
// — no-op, что позволяет безусловный defer Rollback в сценариях.
type unitOfWork struct {
	db *sql.DB
	tx *sql.Tx

	carts   domain.CartRepository
	coupons domain.CouponRepository
	orders  domain.OrderRepository
}

// NewUnitOfWork создаёт транзакцию поверх подключения store.
func NewUnitOfWork(store *Store) domain.UnitOfWork {
	return &unitOfWork{db: store.DB()}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return domain.ErrTransactionActive
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	u.tx = tx
	u.carts = newCartRepositoryTx(tx)
	u.coupons = newCouponRepositoryTx(tx)
	u.orders = newOrderRepositoryTx(tx)
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return domain.ErrNoActiveTransaction
	}

	err := u.tx.Commit()
	u.reset()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback()
	u.reset()
	if err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func (u *unitOfWork) HasActiveTransaction() bool {
	return u.tx != nil
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

func (u *unitOfWork) reset() {
	u.tx = nil
	u.carts = nil
	u.coupons = nil
	u.orders = nil
}

// UnitOfWorkFactory выдаёт по новой транзакции на каждый сценарий.
type UnitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory создаёт фабрику транзакций поверх store.
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
