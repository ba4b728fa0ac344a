package domain

import "context"

// ClientRepository — read-only доступ к клиентам для проверки ссылок.
type ClientRepository interface {
	// Get возвращает клиента или ErrClientNotFound.
	Get(ctx context.Context, id string) (Client, error)
}

// AddressRepository — read-only доступ к адресной книге.
type AddressRepository interface {
	// Get возвращает адрес или ErrAddressNotFound.
	Get(ctx context.Context, id string) (Address, error)
}

// ProductVariantRepository — read-only доступ к каталогу для снятия
// снимков sku/названия при создании заказа.
type ProductVariantRepository interface {
	// Get возвращает позицию каталога или ErrProductVariantNotFound.
	Get(ctx context.Context, id string) (ProductVariant, error)
}

// CartRepository описывает хранилище корзин.
type CartRepository interface {
	// GetByClientID возвращает корзину клиента или ErrCartNotFound.
	GetByClientID(ctx context.Context, clientID string) (*Cart, error)
	// Insert сохраняет новую корзину.
	Insert(ctx context.Context, cart *Cart) error
	// Update перезаписывает корзину с учётом optimistic locking.
	Update(ctx context.Context, cart *Cart) error
}

// CouponRepository описывает хранилище купонов.
type CouponRepository interface {
	// GetByCode возвращает купон по коду или ErrCouponNotFound.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	// RedeemUse атомарно инкрементирует счётчик использований с проверкой
	// квоты на стороне хранилища. Возвращает ErrCouponQuotaExceeded, если
	// квота уже исчерпана: это закрывает гонку двух конкурентных применений,
	// прошедших IsValid до инкремента.
	RedeemUse(ctx context.Context, couponID string) error
}

// OrderRepository описывает хранилище заказов.
type OrderRepository interface {
	// Insert сохраняет новый заказ вместе с позициями и адресами.
	Insert(ctx context.Context, order *Order) error
	// Update применяет изменения заказа с учётом optimistic locking.
	Update(ctx context.Context, order *Order) error
	// AddPayment сохраняет попытку оплаты заказа.
	AddPayment(ctx context.Context, payment Payment) error
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// ListByClient возвращает заказы клиента, новые первыми.
	ListByClient(ctx context.Context, clientID string, limit int) ([]*Order, error)
}

// GatewayResult — ответ платёжного шлюза на попытку списания.
type GatewayResult struct {
	Approved      bool
	TransactionID string
	DeclineReason string
}

// PaymentGateway — внешний шлюз расчётов; чёрный ящик approve/decline.
type PaymentGateway interface {
	Charge(ctx context.Context, order *Order, paymentMethodToken string) (GatewayResult, error)
}

// EventPublisher публикует доменные события заинтересованным потребителям.
// Вызывается строго после commit транзакции сценария.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// UnitOfWork владеет границей одной транзакции. Хэндл транзакции
// принадлежит ровно одному сценарию и не разделяется между запросами.
// Rollback на неактивной транзакции — no-op.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	HasActiveTransaction() bool

	// Репозитории, привязанные к открытой транзакции.
	Carts() CartRepository
	Coupons() CouponRepository
	Orders() OrderRepository
}

// UnitOfWorkFactory выдаёт новый UnitOfWork на каждый сценарий.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}
