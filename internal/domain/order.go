package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — оплата подтверждена, заказ готовится к отправке.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту. Терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled — заказ отменён до доставки. Терминальный статус.
	OrderStatusCanceled OrderStatus = "canceled"
)

// OrderItem — неизменяемый снимок позиции на момент создания заказа,
// отвязанный от последующих изменений цен каталога.
type OrderItem struct {
	ID               string
	OrderID          string
	ProductVariantID string
	SKU              string
	Name             string
	Quantity         int32
	UnitPrice        Money
	CreatedAt        time.Time
}

// Total возвращает стоимость позиции.
func (i OrderItem) Total() Money {
	return i.UnitPrice.MulQty(i.Quantity)
}

// OrderAddress — снимок адреса доставки или оплаты на момент создания
// заказа. Копия, а не ссылка: правки адресной книги клиента не должны
// менять историю заказов.
type OrderAddress struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Validate накапливает нарушения обязательных полей адреса.
func (a OrderAddress) Validate(n *Notification, kind string) {
	if a.Street == "" {
		n.Add(fmt.Errorf("%s address: street is required", kind))
	}
	if a.City == "" {
		n.Add(fmt.Errorf("%s address: city is required", kind))
	}
	if a.PostalCode == "" {
		n.Add(fmt.Errorf("%s address: postal_code is required", kind))
	}
	if a.Country == "" {
		n.Add(fmt.Errorf("%s address: country is required", kind))
	}
}

// OrderLine — входная строка для создания заказа: позиция корзины,
// дополненная снимком каталога (sku, название).
type OrderLine struct {
	ProductVariantID string
	SKU              string
	Name             string
	Quantity         int32
	UnitPrice        Money
}

// Order — неизменяемый снимок завершённого намерения покупки: позиции,
// адресные снимки, денежные итоги, статус и платежи.
type Order struct {
	ID              string
	ReferenceCode   string
	ClientID        string
	CouponID        string
	Status          OrderStatus
	ItemsTotal      Money
	Discount        Money
	Shipping        Money
	ShippingAddress OrderAddress
	BillingAddress  OrderAddress
	Notes           string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	items    []OrderItem
	payments []Payment
	events   []Event
}

// NewOrderFromCart создаёт заказ из непустого списка строк корзины.
// Позиции и адреса снимаются в неизменяемые копии, скидка равна нулю,
// статус — pending.
func NewOrderFromCart(
	clientID string,
	lines []OrderLine,
	shipping Money,
	shippingAddress OrderAddress,
	billingAddress OrderAddress,
	notes string,
	n *Notification,
) *Order {
	if clientID == "" {
		n.Add(ErrClientRequired)
	}
	if len(lines) == 0 {
		n.Add(ErrOrderItemsRequired)
	}
	shippingAddress.Validate(n, "shipping")
	billingAddress.Validate(n, "billing")

	now := time.Now().UTC()
	orderID := uuid.NewString()

	currency := shipping.Currency
	if currency == "" && len(lines) > 0 {
		currency = lines[0].UnitPrice.Currency
	}

	items := make([]OrderItem, 0, len(lines))
	itemsTotal := ZeroMoney(currency)
	for idx, line := range lines {
		if line.SKU == "" {
			n.Add(ErrOrderSKURequired)
		}
		if line.Name == "" {
			n.Add(ErrOrderNameRequired)
		}
		if line.Quantity <= 0 {
			n.Add(ErrQuantityInvalid)
		}
		item := OrderItem{
			ID:               uuid.NewString(),
			OrderID:          orderID,
			ProductVariantID: line.ProductVariantID,
			SKU:              line.SKU,
			Name:             line.Name,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			CreatedAt:        now,
		}
		items = append(items, item)

		sum, err := itemsTotal.Add(item.Total())
		if err != nil {
			n.Add(fmt.Errorf("item[%d]: %w", idx, err))
			continue
		}
		itemsTotal = sum
	}

	order := &Order{
		ID:              orderID,
		ReferenceCode:   newReferenceCode(now),
		ClientID:        clientID,
		Status:          OrderStatusPending,
		ItemsTotal:      itemsTotal,
		Discount:        ZeroMoney(currency),
		Shipping:        shipping,
		ShippingAddress: shippingAddress,
		BillingAddress:  billingAddress,
		Notes:           notes,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
		items:           items,
	}

	if !n.HasErrors() {
		order.record(OrderCreated{
			OrderID:         order.ID,
			ClientID:        order.ClientID,
			ReferenceCode:   order.ReferenceCode,
			GrandTotalMinor: order.GrandTotal().AmountMinor,
			Currency:        currency,
			At:              now,
		})
	}

	return order
}

// OrderState — экспортируемый снимок для восстановления заказа хранилищем.
type OrderState struct {
	ID              string
	ReferenceCode   string
	ClientID        string
	CouponID        string
	Status          OrderStatus
	ItemsTotal      Money
	Discount        Money
	Shipping        Money
	ShippingAddress OrderAddress
	BillingAddress  OrderAddress
	Notes           string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []OrderItem
	Payments        []Payment
}

// RestoreOrder восстанавливает заказ из хранилища без повторной валидации.
func RestoreOrder(state OrderState) *Order {
	items := make([]OrderItem, len(state.Items))
	copy(items, state.Items)
	payments := make([]Payment, len(state.Payments))
	copy(payments, state.Payments)

	return &Order{
		ID:              state.ID,
		ReferenceCode:   state.ReferenceCode,
		ClientID:        state.ClientID,
		CouponID:        state.CouponID,
		Status:          state.Status,
		ItemsTotal:      state.ItemsTotal,
		Discount:        state.Discount,
		Shipping:        state.Shipping,
		ShippingAddress: state.ShippingAddress,
		BillingAddress:  state.BillingAddress,
		Notes:           state.Notes,
		Version:         state.Version,
		CreatedAt:       state.CreatedAt,
		UpdatedAt:       state.UpdatedAt,
		items:           items,
		payments:        payments,
	}
}

// Items возвращает копию позиций заказа.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

// Payments возвращает копию платежей заказа.
func (o *Order) Payments() []Payment {
	out := make([]Payment, len(o.payments))
	copy(out, o.payments)
	return out
}

// GrandTotal вычисляет итог заказа: itemsTotal − discount + shipping.
// Скидка ограничена itemsTotal при применении, поэтому итог не бывает
// отрицательным.
func (o *Order) GrandTotal() Money {
	afterDiscount, err := o.ItemsTotal.Sub(o.Discount)
	if err != nil {
		afterDiscount = ZeroMoney(o.ItemsTotal.Currency)
	}
	total, err := afterDiscount.Add(o.Shipping)
	if err != nil {
		return afterDiscount
	}
	return total
}

// ApplyDiscount фиксирует купон и размер скидки. Допустимо только на
// заказе в статусе pending и только один раз.
func (o *Order) ApplyDiscount(coupon *Coupon, discount Money) error {
	if o.Status != OrderStatusPending {
		return ErrDiscountImmutable
	}
	if o.CouponID != "" {
		return ErrDiscountAlreadyApplied
	}
	if discount.Currency != o.ItemsTotal.Currency {
		return ErrCurrencyMismatch
	}

	capped, err := o.ItemsTotal.Min(discount)
	if err != nil {
		return err
	}

	o.CouponID = coupon.ID
	o.Discount = capped
	o.UpdatedAt = time.Now().UTC()
	o.record(CouponApplied{
		OrderID:       o.ID,
		CouponID:      coupon.ID,
		CouponCode:    coupon.Code,
		DiscountMinor: capped.AmountMinor,
		At:            o.UpdatedAt,
	})
	return nil
}

// SetAsProcessing переводит оплаченный заказ в обработку.
func (o *Order) SetAsProcessing() error {
	return o.transitionTo(OrderStatusProcessing, OrderStatusPending)
}

// Ship отмечает передачу заказа в доставку.
func (o *Order) Ship() error {
	return o.transitionTo(OrderStatusShipped, OrderStatusProcessing)
}

// Deliver отмечает вручение заказа.
func (o *Order) Deliver() error {
	return o.transitionTo(OrderStatusDelivered, OrderStatusShipped)
}

// Cancel отменяет заказ. Недопустимо из delivered и canceled.
func (o *Order) Cancel() error {
	return o.transitionTo(OrderStatusCanceled,
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped)
}

// RegisterPayment прикрепляет результат попытки оплаты к заказу.
func (o *Order) RegisterPayment(payment Payment) {
	o.payments = append(o.payments, payment)
	o.UpdatedAt = time.Now().UTC()

	switch payment.Status {
	case PaymentStatusApproved:
		o.record(PaymentApproved{
			OrderID:       o.ID,
			PaymentID:     payment.ID,
			TransactionID: payment.TransactionID,
			AmountMinor:   payment.Amount.AmountMinor,
			At:            o.UpdatedAt,
		})
	case PaymentStatusDeclined:
		o.record(PaymentDeclined{
			OrderID:   o.ID,
			PaymentID: payment.ID,
			Reason:    payment.DeclineReason,
			At:        o.UpdatedAt,
		})
	}
}

// PullEvents отдаёт накопленные доменные события и очищает буфер.
// Публикуются только после успешного commit.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) transitionTo(target OrderStatus, allowedFrom ...OrderStatus) error {
	for _, from := range allowedFrom {
		if o.Status == from {
			previous := o.Status
			o.Status = target
			o.UpdatedAt = time.Now().UTC()
			o.record(OrderStatusChanged{
				OrderID: o.ID,
				From:    previous,
				To:      target,
				At:      o.UpdatedAt,
			})
			return nil
		}
	}
	return &StateTransitionError{Entity: "order", From: string(o.Status), To: string(target)}
}

func (o *Order) record(event Event) {
	o.events = append(o.events, event)
}

// newReferenceCode формирует человекочитаемый код заказа из даты и
// случайного суффикса: "BC-20260831-9F3A2C".
func newReferenceCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("BC-%s-%s", now.Format("20060102"), suffix)
}
