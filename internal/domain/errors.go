package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrClientRequired = errors.New("client_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка арифметики над суммами в разных валютах.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// Ошибка отрицательной денежной суммы.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")

	// ErrCartNotFound возвращается, если корзина клиента отсутствует в хранилище.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartItemNotFound возвращается при операции над несуществующей позицией корзины.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrCartEmpty — бизнес-ошибка: из пустой корзины нельзя создать заказ.
	ErrCartEmpty = errors.New("cart is empty")

	// Ошибки построения купона.
	ErrCouponCodeRequired     = errors.New("coupon code is required")
	ErrCouponDiscountRequired = errors.New("coupon must define exactly one of discount percent or discount amount")
	ErrCouponPercentInvalid   = errors.New("coupon discount percent must be in (0, 100]")
	ErrCouponWindowInvalid    = errors.New("coupon valid_from must precede valid_until")
	ErrCouponMaxUsesInvalid   = errors.New("coupon max_uses must be greater than zero")
	ErrCouponClientRequired   = errors.New("user-specific coupon requires client_id")

	// ErrCouponNotFound — купон отсутствует. Формулировка едина и для купона чужого
	// клиента, чтобы не раскрывать факт его существования.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponNotEligible — купон существует, но не применим к этому заказу.
	ErrCouponNotEligible = errors.New("coupon is not eligible for this order")
	// ErrCouponQuotaExceeded — квота использований купона исчерпана.
	ErrCouponQuotaExceeded = errors.New("coupon usage quota exceeded")

	// Ошибки построения заказа.
	ErrOrderItemsRequired = errors.New("order must contain at least one item")
	ErrOrderSKURequired   = errors.New("order item sku is required")
	ErrOrderNameRequired  = errors.New("order item name is required")

	// ErrOrderNotFound — заказ отсутствует либо принадлежит другому клиенту.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDiscountImmutable — скидка допустима только на заказе в статусе pending.
	ErrDiscountImmutable = errors.New("discount can only be applied to a pending order")
	// ErrDiscountAlreadyApplied — на заказ уже применён купон.
	ErrDiscountAlreadyApplied = errors.New("discount is already applied to this order")

	// ErrClientNotFound — клиент отсутствует в хранилище.
	ErrClientNotFound = errors.New("client not found")
	// ErrAddressNotFound — адрес отсутствует либо принадлежит другому клиенту.
	ErrAddressNotFound = errors.New("address not found")
	// ErrProductVariantNotFound — товарная позиция отсутствует в каталоге.
	ErrProductVariantNotFound = errors.New("product variant not found")

	// Ошибки построения платежа.
	ErrPaymentOrderRequired  = errors.New("payment order_id is required")
	ErrPaymentMethodRequired = errors.New("payment method is required")

	// ErrVersionConflict сигнализирует о конфликте версий при optimistic locking.
	ErrVersionConflict = errors.New("aggregate version conflict")

	// ErrNoActiveTransaction — операция требует открытой транзакции.
	ErrNoActiveTransaction = errors.New("no active transaction")
	// ErrTransactionActive — повторный Begin на уже открытой транзакции.
	ErrTransactionActive = errors.New("transaction is already active")

	// ErrInternal — обобщённая ошибка инфраструктуры для пользователя;
	// первопричина остаётся только в логах.
	ErrInternal = errors.New("service temporarily unavailable, try again later")
)

// StateTransitionError описывает недопустимый переход жизненного цикла.
// Вызывающий код не должен повторять операцию без перечитывания агрегата.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition from %q to %q", e.Entity, e.From, e.To)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsStateTransition проверяет, является ли ошибка недопустимым переходом статуса.
func IsStateTransition(err error) bool {
	var target *StateTransitionError
	return errors.As(err, &target)
}
