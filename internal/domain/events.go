package domain

import "time"

// Event — доменное событие, поднятое агрегатом в ходе сценария.
// Набор вариантов закрыт: публикация выполняется явным type switch,
// без рефлексии. Событие публикуется только после успешного commit.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// OrderCreated — заказ создан из корзины.
type OrderCreated struct {
	OrderID         string
	ClientID        string
	ReferenceCode   string
	GrandTotalMinor int64
	Currency        string
	At              time.Time
}

func (e OrderCreated) EventName() string { return "order.created" }
func (e OrderCreated) AggregateID() string { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time { return e.At }

// CouponApplied — на заказ применён купон.
type CouponApplied struct {
	OrderID       string
	CouponID      string
	CouponCode    string
	DiscountMinor int64
	At            time.Time
}

func (e CouponApplied) EventName() string { return "order.coupon_applied" }
func (e CouponApplied) AggregateID() string { return e.OrderID }
func (e CouponApplied) OccurredAt() time.Time { return e.At }

// PaymentApproved — шлюз подтвердил оплату заказа.
type PaymentApproved struct {
	OrderID       string
	PaymentID     string
	TransactionID string
	AmountMinor   int64
	At            time.Time
}

func (e PaymentApproved) EventName() string { return "payment.approved" }
func (e PaymentApproved) AggregateID() string { return e.OrderID }
func (e PaymentApproved) OccurredAt() time.Time { return e.At }

// PaymentDeclined — шлюз отклонил оплату заказа.
type PaymentDeclined struct {
	OrderID   string
	PaymentID string
	Reason    string
	At        time.Time
}

func (e PaymentDeclined) EventName() string { return "payment.declined" }
func (e PaymentDeclined) AggregateID() string { return e.OrderID }
func (e PaymentDeclined) OccurredAt() time.Time { return e.At }

// OrderStatusChanged — заказ перешёл в новый статус.
type OrderStatusChanged struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	At      time.Time
}

func (e OrderStatusChanged) EventName() string { return "order.status_changed" }
func (e OrderStatusChanged) AggregateID() string { return e.OrderID }
func (e OrderStatusChanged) OccurredAt() time.Time { return e.At }

// CartCleared — корзина опустошена при конвертации в заказ.
type CartCleared struct {
	CartID   string
	ClientID string
	At       time.Time
}

func (e CartCleared) EventName() string { return "cart.cleared" }
func (e CartCleared) AggregateID() string { return e.CartID }
func (e CartCleared) OccurredAt() time.Time { return e.At }
