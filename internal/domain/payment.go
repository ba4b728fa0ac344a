package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus описывает состояние попытки оплаты.
type PaymentStatus string

const (
	// PaymentStatusPending — попытка создана, ответ шлюза ещё не зафиксирован.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusApproved — шлюз подтвердил списание.
	PaymentStatusApproved PaymentStatus = "approved"
	// PaymentStatusDeclined — шлюз отклонил списание.
	PaymentStatusDeclined PaymentStatus = "declined"
	// PaymentStatusRefunded — подтверждённый платёж возвращён клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod — способ оплаты, принятый шлюзом.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

// Payment — одна попытка расчёта по заказу. Жизненный цикл:
// pending → approved|declined, approved → refunded.
type Payment struct {
	ID            string
	OrderID       string
	Amount        Money
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	DeclineReason string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// NewPayment создаёт попытку оплаты в статусе pending.
func NewPayment(orderID string, amount Money, method PaymentMethod, n *Notification) Payment {
	if orderID == "" {
		n.Add(ErrPaymentOrderRequired)
	}
	if method == "" {
		n.Add(ErrPaymentMethodRequired)
	}
	if amount.Currency == "" {
		n.Add(ErrCurrencyRequired)
	}
	return Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Status:    PaymentStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkAsApproved фиксирует подтверждение шлюза. Допустим только из pending.
func (p *Payment) MarkAsApproved(transactionID string) error {
	if p.Status != PaymentStatusPending {
		return &StateTransitionError{Entity: "payment", From: string(p.Status), To: string(PaymentStatusApproved)}
	}
	now := time.Now().UTC()
	p.Status = PaymentStatusApproved
	p.TransactionID = transactionID
	p.ProcessedAt = &now
	return nil
}

// MarkAsDeclined фиксирует отказ шлюза. Допустим только из pending.
func (p *Payment) MarkAsDeclined(reason string) error {
	if p.Status != PaymentStatusPending {
		return &StateTransitionError{Entity: "payment", From: string(p.Status), To: string(PaymentStatusDeclined)}
	}
	now := time.Now().UTC()
	p.Status = PaymentStatusDeclined
	p.DeclineReason = reason
	p.ProcessedAt = &now
	return nil
}

// MarkAsRefunded переводит подтверждённый платёж в refunded.
func (p *Payment) MarkAsRefunded() error {
	if p.Status != PaymentStatusApproved {
		return &StateTransitionError{Entity: "payment", From: string(p.Status), To: string(PaymentStatusRefunded)}
	}
	p.Status = PaymentStatusRefunded
	return nil
}
