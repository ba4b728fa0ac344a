package domain

import (
	"time"

	"github.com/google/uuid"
)

// CouponScope задаёт область действия купона.
type CouponScope string

const (
	// CouponScopeGeneral — купон доступен любому клиенту.
	CouponScopeGeneral CouponScope = "general"
	// CouponScopeUserSpecific — купон закреплён за конкретным клиентом.
	CouponScopeUserSpecific CouponScope = "user_specific"
)

// Coupon — правило скидки с окном действия, квотой использований и
// опциональной привязкой к клиенту. Скидка задаётся либо процентом,
// либо фиксированной суммой, но не обоими сразу.
type Coupon struct {
	ID                string
	Code              string
	DiscountPercent   int32  // > 0 только для процентного купона
	DiscountAmount    *Money // задан только для купона на фиксированную сумму
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int32
	TimesUsed         int32
	MinPurchaseAmount *Money
	Active            bool
	Scope             CouponScope
	ClientID          string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CouponSpec — входные данные для создания купона.
type CouponSpec struct {
	Code              string
	DiscountPercent   int32
	DiscountAmount    *Money
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int32
	MinPurchaseAmount *Money
	Scope             CouponScope
	ClientID          string
}

// NewCoupon создаёт активный купон. Нарушения правил построения
// накапливаются в notification.
func NewCoupon(spec CouponSpec, n *Notification) *Coupon {
	if spec.Code == "" {
		n.Add(ErrCouponCodeRequired)
	}

	hasPercent := spec.DiscountPercent != 0
	hasAmount := spec.DiscountAmount != nil
	if hasPercent == hasAmount {
		n.Add(ErrCouponDiscountRequired)
	}
	if hasPercent && (spec.DiscountPercent <= 0 || spec.DiscountPercent > 100) {
		n.Add(ErrCouponPercentInvalid)
	}
	if hasAmount && spec.DiscountAmount.AmountMinor <= 0 {
		n.Add(ErrAmountNegative)
	}
	if !spec.ValidFrom.Before(spec.ValidUntil) {
		n.Add(ErrCouponWindowInvalid)
	}
	if spec.MaxUses != nil && *spec.MaxUses <= 0 {
		n.Add(ErrCouponMaxUsesInvalid)
	}

	scope := spec.Scope
	if scope == "" {
		scope = CouponScopeGeneral
	}
	if scope == CouponScopeUserSpecific && spec.ClientID == "" {
		n.Add(ErrCouponClientRequired)
	}

	now := time.Now().UTC()
	return &Coupon{
		ID:                uuid.NewString(),
		Code:              spec.Code,
		DiscountPercent:   spec.DiscountPercent,
		DiscountAmount:    spec.DiscountAmount,
		ValidFrom:         spec.ValidFrom,
		ValidUntil:        spec.ValidUntil,
		MaxUses:           spec.MaxUses,
		TimesUsed:         0,
		MinPurchaseAmount: spec.MinPurchaseAmount,
		Active:            true,
		Scope:             scope,
		ClientID:          spec.ClientID,
		Version:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsValid — чистый предикат применимости купона к заказу на сумму orderTotal
// от клиента requestingClientID. Без побочных эффектов.
func (c *Coupon) IsValid(orderTotal Money, requestingClientID string) bool {
	return c.IsValidAt(time.Now().UTC(), orderTotal, requestingClientID)
}

// IsValidAt проверяет применимость на заданный момент времени.
func (c *Coupon) IsValidAt(now time.Time, orderTotal Money, requestingClientID string) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	if c.MaxUses != nil && c.TimesUsed >= *c.MaxUses {
		return false
	}
	// Фиксированная скидка в чужой валюте не применима: иначе квота
	// сгорит за нулевую скидку.
	if c.DiscountAmount != nil && c.DiscountAmount.Currency != orderTotal.Currency {
		return false
	}
	if c.MinPurchaseAmount != nil {
		below, err := orderTotal.LessThan(*c.MinPurchaseAmount)
		if err != nil || below {
			return false
		}
	}
	if c.Scope == CouponScopeUserSpecific && c.ClientID != requestingClientID {
		return false
	}
	return true
}

// CalculateDiscount возвращает размер скидки для заказа на orderTotal.
// Фиксированная скидка ограничена суммой заказа.
func (c *Coupon) CalculateDiscount(orderTotal Money) Money {
	if c.DiscountPercent > 0 {
		return orderTotal.Percent(c.DiscountPercent)
	}
	if c.DiscountAmount == nil {
		return ZeroMoney(orderTotal.Currency)
	}
	capped, err := orderTotal.Min(*c.DiscountAmount)
	if err != nil {
		return ZeroMoney(orderTotal.Currency)
	}
	return capped
}

// Use фиксирует одно использование купона. Вызывается ровно один раз на
// успешное применение, внутри той же транзакции, что сохраняет скидку
// заказа: иначе конкурентные применения могут превысить квоту.
func (c *Coupon) Use() error {
	if c.MaxUses != nil && c.TimesUsed >= *c.MaxUses {
		return ErrCouponQuotaExceeded
	}
	c.TimesUsed++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate выключает купон; запись не удаляется.
func (c *Coupon) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
}

// Activate повторно включает купон.
func (c *Coupon) Activate() {
	c.Active = true
	c.UpdatedAt = time.Now().UTC()
}
