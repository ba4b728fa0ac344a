package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem представляет одну позицию корзины. Позиции уникальны по
// ProductVariantID: повторное добавление того же варианта увеличивает
// количество, а не создаёт новую строку.
type CartItem struct {
	ID               string
	CartID           string
	ProductVariantID string
	Quantity         int32
	UnitPrice        Money
	CreatedAt        time.Time
}

// Total возвращает стоимость позиции: количество на цену за единицу.
func (i CartItem) Total() Money {
	return i.UnitPrice.MulQty(i.Quantity)
}

// Cart — изменяемая корзина одного клиента. Уникальность «одна корзина на
// клиента» обеспечивает хранилище, а не сам агрегат.
type Cart struct {
	ID        string
	ClientID  string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	items []CartItem
}

// NewCart создаёт пустую корзину клиента. Нарушения валидации
// накапливаются в notification.
func NewCart(clientID string, n *Notification) *Cart {
	if clientID == "" {
		n.Add(ErrClientRequired)
	}
	now := time.Now().UTC()
	return &Cart{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RestoreCart восстанавливает корзину из хранилища без повторной валидации.
func RestoreCart(id, clientID string, items []CartItem, version int64, createdAt, updatedAt time.Time) *Cart {
	restored := make([]CartItem, len(items))
	copy(restored, items)
	return &Cart{
		ID:        id,
		ClientID:  clientID,
		Version:   version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		items:     restored,
	}
}

// Items возвращает копию позиций: внешний код не должен получать ссылки
// во внутреннее состояние агрегата.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// AddItem добавляет вариант товара. Существующая позиция того же варианта
// увеличивается на quantity.
func (c *Cart) AddItem(productVariantID string, quantity int32, unitPrice Money) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}
	if len(c.items) > 0 && c.items[0].UnitPrice.Currency != unitPrice.Currency {
		return ErrCurrencyMismatch
	}

	for idx := range c.items {
		if c.items[idx].ProductVariantID == productVariantID {
			c.items[idx].Quantity += quantity
			c.items[idx].UnitPrice = unitPrice
			c.touch()
			return nil
		}
	}

	c.items = append(c.items, CartItem{
		ID:               uuid.NewString(),
		CartID:           c.ID,
		ProductVariantID: productVariantID,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		CreatedAt:        time.Now().UTC(),
	})
	c.touch()
	return nil
}

// UpdateItemQuantity устанавливает новое количество позиции. Ноль удаляет
// позицию; неизвестный itemID — жёсткая ошибка, а не тихий no-op.
func (c *Cart) UpdateItemQuantity(itemID string, quantity int32) error {
	if quantity < 0 {
		return ErrQuantityInvalid
	}

	for idx := range c.items {
		if c.items[idx].ID != itemID {
			continue
		}
		if quantity == 0 {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
		} else {
			c.items[idx].Quantity = quantity
		}
		c.touch()
		return nil
	}
	return ErrCartItemNotFound
}

// RemoveItem удаляет позицию; повторное удаление — no-op.
func (c *Cart) RemoveItem(itemID string) {
	for idx := range c.items {
		if c.items[idx].ID == itemID {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
			c.touch()
			return
		}
	}
}

// Clear опустошает корзину, сохраняя саму запись. Вызывается при
// конвертации корзины в заказ.
func (c *Cart) Clear() {
	if len(c.items) == 0 {
		return
	}
	c.items = nil
	c.touch()
}

// TotalPrice суммирует стоимость позиций. Значение вычисляется по запросу
// и не кэшируется на агрегате.
func (c *Cart) TotalPrice() Money {
	if len(c.items) == 0 {
		return Money{}
	}
	total := ZeroMoney(c.items[0].UnitPrice.Currency)
	for _, item := range c.items {
		// Валюты позиций выровнены в AddItem, ошибка здесь невозможна.
		total, _ = total.Add(item.Total())
	}
	return total
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
