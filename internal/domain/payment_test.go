package domain_test

import (
	"errors"
	"testing"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

func makePayment(t *testing.T) domain.Payment {
	t.Helper()
	n := domain.NewNotification()
	payment := domain.NewPayment("order-1", mustMoney(t, 21500, "BRL"), domain.PaymentMethodCreditCard, n)
	if n.HasErrors() {
		t.Fatalf("unexpected validation errors: %v", n.Err())
	}
	return payment
}

func TestNewPayment_Validation(t *testing.T) {
	n := domain.NewNotification()
	domain.NewPayment("", domain.Money{}, "", n)

	if !errors.Is(n.Err(), domain.ErrPaymentOrderRequired) {
		t.Fatalf("expected ErrPaymentOrderRequired, got %v", n.Err())
	}
	if !errors.Is(n.Err(), domain.ErrPaymentMethodRequired) {
		t.Fatalf("expected ErrPaymentMethodRequired, got %v", n.Err())
	}
	if !errors.Is(n.Err(), domain.ErrCurrencyRequired) {
		t.Fatalf("expected ErrCurrencyRequired, got %v", n.Err())
	}
}

func TestPaymentLifecycle(t *testing.T) {
	t.Run("approve from pending", func(t *testing.T) {
		payment := makePayment(t)
		if err := payment.MarkAsApproved("tx-123"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payment.Status != domain.PaymentStatusApproved || payment.TransactionID != "tx-123" {
			t.Fatalf("unexpected payment state: %+v", payment)
		}
		if payment.ProcessedAt == nil {
			t.Fatal("expected processed_at to be set")
		}
	})

	t.Run("decline from pending", func(t *testing.T) {
		payment := makePayment(t)
		if err := payment.MarkAsDeclined("insufficient funds"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payment.Status != domain.PaymentStatusDeclined || payment.ProcessedAt == nil {
			t.Fatalf("unexpected payment state: %+v", payment)
		}
		if payment.DeclineReason != "insufficient funds" {
			t.Fatalf("expected decline reason, got %q", payment.DeclineReason)
		}
	})

	t.Run("approve twice fails", func(t *testing.T) {
		payment := makePayment(t)
		if err := payment.MarkAsApproved("tx-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := payment.MarkAsApproved("tx-2"); !domain.IsStateTransition(err) {
			t.Fatalf("expected state transition error, got %v", err)
		}
	})

	t.Run("refund only from approved", func(t *testing.T) {
		payment := makePayment(t)
		if err := payment.MarkAsRefunded(); !domain.IsStateTransition(err) {
			t.Fatalf("expected state transition error, got %v", err)
		}
		if err := payment.MarkAsApproved("tx-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := payment.MarkAsRefunded(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payment.Status != domain.PaymentStatusRefunded {
			t.Fatalf("expected refunded, got %s", payment.Status)
		}
	})
}
