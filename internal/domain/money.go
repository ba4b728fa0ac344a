package domain

import "fmt"

// Money — неизменяемая денежная сумма в минимальных единицах валюты
// (например, центы). Сравнивается по значению, арифметика допустима
// только внутри одной валюты.
type Money struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// NewMoney создаёт сумму, отклоняя отрицательные значения и пустую валюту.
func NewMoney(amountMinor int64, currency string) (Money, error) {
	if amountMinor < 0 {
		return Money{}, ErrAmountNegative
	}
	if currency == "" {
		return Money{}, ErrCurrencyRequired
	}
	return Money{AmountMinor: amountMinor, Currency: currency}, nil
}

// ZeroMoney возвращает нулевую сумму в заданной валюте.
func ZeroMoney(currency string) Money {
	return Money{AmountMinor: 0, Currency: currency}
}

// IsZero сообщает, является ли сумма нулевой.
func (m Money) IsZero() bool {
	return m.AmountMinor == 0
}

// Add складывает две суммы одной валюты.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{AmountMinor: m.AmountMinor + other.AmountMinor, Currency: m.Currency}, nil
}

// Sub вычитает сумму той же валюты. Результат ниже нуля недопустим.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.AmountMinor > m.AmountMinor {
		return Money{}, ErrAmountNegative
	}
	return Money{AmountMinor: m.AmountMinor - other.AmountMinor, Currency: m.Currency}, nil
}

// MulQty умножает сумму на количество единиц.
func (m Money) MulQty(qty int32) Money {
	return Money{AmountMinor: m.AmountMinor * int64(qty), Currency: m.Currency}
}

// Percent возвращает долю суммы в процентах, округляя вниз до минимальной единицы.
func (m Money) Percent(pct int32) Money {
	return Money{AmountMinor: m.AmountMinor * int64(pct) / 100, Currency: m.Currency}
}

// Min возвращает меньшую из двух сумм одной валюты.
func (m Money) Min(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.AmountMinor < m.AmountMinor {
		return other, nil
	}
	return m, nil
}

// LessThan сравнивает суммы одной валюты.
func (m Money) LessThan(other Money) (bool, error) {
	if m.Currency != other.Currency {
		return false, ErrCurrencyMismatch
	}
	return m.AmountMinor < other.AmountMinor, nil
}

// Equals сравнивает суммы по значению.
func (m Money) Equals(other Money) bool {
	return m.AmountMinor == other.AmountMinor && m.Currency == other.Currency
}

// String форматирует сумму для логов и сообщений: "199.90 BRL".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.AmountMinor/100, m.AmountMinor%100, m.Currency)
}
