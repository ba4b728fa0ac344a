package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

func makeAddress() domain.OrderAddress {
	return domain.OrderAddress{
		Street:     "Avenida Paulista",
		Number:     "1000",
		District:   "Bela Vista",
		City:       "Sao Paulo",
		State:      "SP",
		PostalCode: "01310-100",
		Country:    "BR",
	}
}

func makeLines(t *testing.T) []domain.OrderLine {
	t.Helper()
	return []domain.OrderLine{
		{
			ProductVariantID: "variant-1",
			SKU:              "SKU-1",
			Name:             "Camiseta",
			Quantity:         2,
			UnitPrice:        mustMoney(t, 5000, "BRL"),
		},
		{
			ProductVariantID: "variant-2",
			SKU:              "SKU-2",
			Name:             "Tenis",
			Quantity:         1,
			UnitPrice:        mustMoney(t, 10000, "BRL"),
		},
	}
}

func makeOrder(t *testing.T) *domain.Order {
	t.Helper()
	n := domain.NewNotification()
	order := domain.NewOrderFromCart(
		"client-1", makeLines(t), mustMoney(t, 1500, "BRL"),
		makeAddress(), makeAddress(), "", n,
	)
	if n.HasErrors() {
		t.Fatalf("unexpected validation errors: %v", n.Err())
	}
	return order
}

func TestNewOrderFromCart_Totals(t *testing.T) {
	order := makeOrder(t)

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if order.ItemsTotal.AmountMinor != 20000 {
		t.Fatalf("expected items total 20000, got %d", order.ItemsTotal.AmountMinor)
	}
	if !order.Discount.IsZero() {
		t.Fatalf("expected zero discount, got %d", order.Discount.AmountMinor)
	}
	if order.GrandTotal().AmountMinor != 21500 {
		t.Fatalf("expected grand total 21500, got %d", order.GrandTotal().AmountMinor)
	}
	if len(order.Items()) != 2 {
		t.Fatalf("expected 2 item snapshots, got %d", len(order.Items()))
	}
	if !strings.HasPrefix(order.ReferenceCode, "BC-") {
		t.Fatalf("unexpected reference code: %s", order.ReferenceCode)
	}
}

func TestNewOrderFromCart_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		build func(n *domain.Notification) *domain.Order
		want  error
	}{
		{
			name: "empty items",
			build: func(n *domain.Notification) *domain.Order {
				return domain.NewOrderFromCart("client-1", nil, mustMoney(t, 1500, "BRL"),
					makeAddress(), makeAddress(), "", n)
			},
			want: domain.ErrOrderItemsRequired,
		},
		{
			name: "no client",
			build: func(n *domain.Notification) *domain.Order {
				return domain.NewOrderFromCart("", makeLines(t), mustMoney(t, 1500, "BRL"),
					makeAddress(), makeAddress(), "", n)
			},
			want: domain.ErrClientRequired,
		},
		{
			name: "missing sku",
			build: func(n *domain.Notification) *domain.Order {
				lines := makeLines(t)
				lines[0].SKU = ""
				return domain.NewOrderFromCart("client-1", lines, mustMoney(t, 1500, "BRL"),
					makeAddress(), makeAddress(), "", n)
			},
			want: domain.ErrOrderSKURequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := domain.NewNotification()
			tc.build(n)
			if !errors.Is(n.Err(), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, n.Err())
			}
		})
	}
}

func TestNewOrderFromCart_AccumulatesMultipleErrors(t *testing.T) {
	n := domain.NewNotification()
	domain.NewOrderFromCart("", nil, mustMoney(t, 1500, "BRL"),
		domain.OrderAddress{}, makeAddress(), "", n)

	// Все нарушения собираются за один вызов, а не по одному.
	if got := len(n.Errors()); got < 3 {
		t.Fatalf("expected at least 3 accumulated errors, got %d: %v", got, n.Err())
	}
}

func TestOrderApplyDiscount(t *testing.T) {
	order := makeOrder(t)
	coupon := makeCoupon(t, nil)

	if err := order.ApplyDiscount(coupon, mustMoney(t, 2000, "BRL")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Discount.AmountMinor != 2000 {
		t.Fatalf("expected discount 2000, got %d", order.Discount.AmountMinor)
	}
	if order.GrandTotal().AmountMinor != 19500 {
		t.Fatalf("expected grand total 19500, got %d", order.GrandTotal().AmountMinor)
	}

	// Повторное применение запрещено.
	if err := order.ApplyDiscount(coupon, mustMoney(t, 100, "BRL")); !errors.Is(err, domain.ErrDiscountAlreadyApplied) {
		t.Fatalf("expected ErrDiscountAlreadyApplied, got %v", err)
	}
}

func TestOrderApplyDiscount_OnlyWhilePending(t *testing.T) {
	order := makeOrder(t)
	if err := order.SetAsProcessing(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := order.ApplyDiscount(makeCoupon(t, nil), mustMoney(t, 2000, "BRL"))
	if !errors.Is(err, domain.ErrDiscountImmutable) {
		t.Fatalf("expected ErrDiscountImmutable, got %v", err)
	}
}

func TestOrderApplyDiscount_CappedAtItemsTotal(t *testing.T) {
	order := makeOrder(t)
	if err := order.ApplyDiscount(makeCoupon(t, nil), mustMoney(t, 50000, "BRL")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Discount.AmountMinor != 20000 {
		t.Fatalf("expected discount capped at 20000, got %d", order.Discount.AmountMinor)
	}
	// Инвариант: grandTotal = itemsTotal − discount + shipping и всегда >= 0.
	if got := order.GrandTotal().AmountMinor; got != 1500 {
		t.Fatalf("expected grand total 1500, got %d", got)
	}
}

func TestOrderStateMachine(t *testing.T) {
	t.Run("ship from pending fails", func(t *testing.T) {
		order := makeOrder(t)
		if err := order.Ship(); !domain.IsStateTransition(err) {
			t.Fatalf("expected state transition error, got %v", err)
		}
	})

	t.Run("cancel from delivered fails", func(t *testing.T) {
		order := makeOrder(t)
		mustTransition(t, order.SetAsProcessing, order.Ship, order.Deliver)
		if err := order.Cancel(); !domain.IsStateTransition(err) {
			t.Fatalf("expected state transition error, got %v", err)
		}
	})

	t.Run("processing then cancel succeeds", func(t *testing.T) {
		order := makeOrder(t)
		mustTransition(t, order.SetAsProcessing, order.Cancel)
		if order.Status != domain.OrderStatusCanceled {
			t.Fatalf("expected canceled, got %s", order.Status)
		}
	})

	t.Run("cancel is not re-enterable", func(t *testing.T) {
		order := makeOrder(t)
		mustTransition(t, order.Cancel)
		if err := order.Cancel(); !domain.IsStateTransition(err) {
			t.Fatalf("expected state transition error, got %v", err)
		}
	})

	t.Run("full happy path", func(t *testing.T) {
		order := makeOrder(t)
		mustTransition(t, order.SetAsProcessing, order.Ship, order.Deliver)
		if order.Status != domain.OrderStatusDelivered {
			t.Fatalf("expected delivered, got %s", order.Status)
		}
	})
}

func mustTransition(t *testing.T, steps ...func() error) {
	t.Helper()
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("unexpected transition error: %v", err)
		}
	}
}

func TestOrderTransitionError_CarriesStates(t *testing.T) {
	order := makeOrder(t)
	err := order.Deliver()

	var transition *domain.StateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
	if transition.From != string(domain.OrderStatusPending) || transition.To != string(domain.OrderStatusDelivered) {
		t.Fatalf("transition error lost context: %+v", transition)
	}
}

func TestOrderPullEvents_DrainsBuffer(t *testing.T) {
	order := makeOrder(t)
	mustTransition(t, order.SetAsProcessing)

	events := order.PullEvents()
	if len(events) != 2 { // OrderCreated + OrderStatusChanged
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventName() != "order.created" {
		t.Fatalf("unexpected first event: %s", events[0].EventName())
	}
	if len(order.PullEvents()) != 0 {
		t.Fatal("expected drained event buffer")
	}
}

func TestOrderItems_ReturnsCopy(t *testing.T) {
	order := makeOrder(t)
	items := order.Items()
	items[0].Quantity = 99

	if got := order.Items()[0].Quantity; got != 2 {
		t.Fatalf("aggregate state mutated through accessor: %d", got)
	}
}
