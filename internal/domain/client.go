package domain

import "time"

// Client — read-only представление клиента из модуля аутентификации.
// Ядро заказов использует только идентификатор и базовые реквизиты.
type Client struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Address — запись адресной книги клиента. Заказ не ссылается на неё,
// а снимает копию в OrderAddress на момент создания.
type Address struct {
	ID         string
	ClientID   string
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Snapshot переносит адрес в неизменяемую копию для заказа.
func (a Address) Snapshot() OrderAddress {
	return OrderAddress{
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// ProductVariant — позиция каталога, по которой корзина хранит ссылку,
// а заказ снимает sku/название/цену.
type ProductVariant struct {
	ID    string
	SKU   string
	Name  string
	Price Money
}
