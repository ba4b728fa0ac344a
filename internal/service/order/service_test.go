package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
	"github.com/brunodias77/bcommerce-server-sub000/internal/service/gateway"
	"github.com/brunodias77/bcommerce-server-sub000/internal/storage/memory"
)

const (
	testClientID          = "11111111-1111-1111-1111-111111111111"
	testOtherClientID     = "22222222-2222-2222-2222-222222222222"
	testShippingAddressID = "33333333-3333-3333-3333-333333333333"
	testBillingAddressID  = "44444444-4444-4444-4444-444444444444"
	testVariantShirtID    = "55555555-5555-5555-5555-555555555555"
	testVariantMugID      = "66666666-6666-6666-6666-666666666666"
)

// capturingPublisher копит опубликованные события для проверок.
type capturingPublisher struct {
	events []domain.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) names() []string {
	names := make([]string, 0, len(p.events))
	for _, event := range p.events {
		names = append(names, event.EventName())
	}
	return names
}

type fixture struct {
	store     *memory.Store
	service   *Service
	publisher *capturingPublisher
	gateway   *gateway.MockGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutClient(domain.Client{ID: testClientID, Name: "Bruno", Email: "bruno@example.com"})
	store.PutAddress(domain.Address{
		ID:         testShippingAddressID,
		ClientID:   testClientID,
		Street:     "Av. Paulista",
		Number:     "1000",
		City:       "Sao Paulo",
		State:      "SP",
		PostalCode: "01310-100",
		Country:    "BR",
	})
	store.PutAddress(domain.Address{
		ID:         testBillingAddressID,
		ClientID:   testClientID,
		Street:     "Rua Augusta",
		Number:     "500",
		City:       "Sao Paulo",
		State:      "SP",
		PostalCode: "01305-000",
		Country:    "BR",
	})
	store.PutVariant(domain.ProductVariant{
		ID:    testVariantShirtID,
		SKU:   "TS-001",
		Name:  "Camiseta",
		Price: mustMoney(t, 5000, "BRL"),
	})
	store.PutVariant(domain.ProductVariant{
		ID:    testVariantMugID,
		SKU:   "MG-001",
		Name:  "Caneca",
		Price: mustMoney(t, 10000, "BRL"),
	})

	publisher := &capturingPublisher{}
	mockGateway := gateway.NewMockGateway()

	service := NewServiceWithoutMetrics(
		memory.NewUnitOfWorkFactory(store),
		memory.NewOrderRepository(store),
		memory.NewClientRepository(store),
		memory.NewAddressRepository(store),
		memory.NewProductVariantRepository(store),
		mockGateway,
		publisher,
		nil,
		nil,
	)

	return &fixture{
		store:     store,
		service:   service,
		publisher: publisher,
		gateway:   mockGateway,
	}
}

func mustMoney(t *testing.T, amount int64, currency string) domain.Money {
	t.Helper()
	m, err := domain.NewMoney(amount, currency)
	if err != nil {
		t.Fatalf("NewMoney(%d, %q): %v", amount, currency, err)
	}
	return m
}

// seedCart кладёт в корзину клиента товары на 20000 (2 x 5000 + 1 x 10000).
// Корзина одна на клиента: существующую пополняем через Update,
// Insert выполняем только когда корзины ещё нет.
func (f *fixture) seedCart(t *testing.T) {
	t.Helper()
	repo := memory.NewCartRepository(f.store)
	cart, err := repo.GetByClientID(context.Background(), testClientID)
	if errors.Is(err, domain.ErrCartNotFound) {
		n := domain.NewNotification()
		cart = domain.NewCart(testClientID, n)
		require.False(t, n.HasErrors())
		require.NoError(t, cart.AddItem(testVariantShirtID, 2, mustMoney(t, 5000, "BRL")))
		require.NoError(t, cart.AddItem(testVariantMugID, 1, mustMoney(t, 10000, "BRL")))
		require.NoError(t, repo.Insert(context.Background(), cart))
		return
	}
	require.NoError(t, err)
	require.NoError(t, cart.AddItem(testVariantShirtID, 2, mustMoney(t, 5000, "BRL")))
	require.NoError(t, cart.AddItem(testVariantMugID, 1, mustMoney(t, 10000, "BRL")))
	require.NoError(t, repo.Update(context.Background(), cart))
}

func (f *fixture) seedCoupon(t *testing.T, code string, percent int32, maxUses int32) *domain.Coupon {
	t.Helper()
	n := domain.NewNotification()
	coupon := domain.NewCoupon(domain.CouponSpec{
		Code:            code,
		DiscountPercent: percent,
		ValidFrom:       time.Now().UTC().Add(-time.Hour),
		ValidUntil:      time.Now().UTC().Add(time.Hour),
		MaxUses:         &maxUses,
	}, n)
	require.False(t, n.HasErrors())
	f.store.PutCoupon(coupon)
	return coupon
}

func (f *fixture) createOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
		ClientID:          testClientID,
		ShippingAddressID: testShippingAddressID,
		BillingAddressID:  testBillingAddressID,
		Shipping:          mustMoney(t, 1500, "BRL"),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder(t *testing.T) {
	t.Run("converts cart into pending order", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)

		order := f.createOrder(t)

		// 20000 позиций + 1500 доставка
		assert.Equal(t, int64(21500), order.GrandTotal().AmountMinor)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Len(t, order.Items(), 2)
		assert.NotEmpty(t, order.ReferenceCode)
		assert.Equal(t, "TS-001", order.Items()[0].SKU)
		assert.Equal(t, "Av. Paulista", order.ShippingAddress.Street)

		// Корзина опустошена в той же транзакции
		cart, err := memory.NewCartRepository(f.store).GetByClientID(context.Background(), testClientID)
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())

		assert.Equal(t, []string{"order.created", "cart.cleared"}, f.publisher.names())
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		f := newFixture(t)
		n := domain.NewNotification()
		cart := domain.NewCart(testClientID, n)
		require.NoError(t, memory.NewCartRepository(f.store).Insert(context.Background(), cart))

		_, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
			ClientID:          testClientID,
			ShippingAddressID: testShippingAddressID,
			BillingAddressID:  testBillingAddressID,
			Shipping:          mustMoney(t, 1500, "BRL"),
		})
		assert.ErrorIs(t, err, domain.ErrCartEmpty)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("missing cart is rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
			ClientID:          testClientID,
			ShippingAddressID: testShippingAddressID,
			BillingAddressID:  testBillingAddressID,
			Shipping:          mustMoney(t, 1500, "BRL"),
		})
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("foreign address is indistinguishable from missing", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		f.store.PutAddress(domain.Address{
			ID:         "foreign-address",
			ClientID:   testOtherClientID,
			Street:     "Elsewhere",
			City:       "Rio",
			PostalCode: "20000-000",
			Country:    "BR",
		})

		_, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
			ClientID:          testClientID,
			ShippingAddressID: "foreign-address",
			BillingAddressID:  testBillingAddressID,
			Shipping:          mustMoney(t, 1500, "BRL"),
		})
		assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	})

	t.Run("insert failure rolls back and keeps cart intact", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)

		failing := &failingUnitOfWorkFactory{inner: memory.NewUnitOfWorkFactory(f.store)}
		f.service.uowFactory = failing

		_, err := f.service.CreateOrder(context.Background(), CreateOrderInput{
			ClientID:          testClientID,
			ShippingAddressID: testShippingAddressID,
			BillingAddressID:  testBillingAddressID,
			Shipping:          mustMoney(t, 1500, "BRL"),
		})
		assert.ErrorIs(t, err, domain.ErrInternal)

		// Корзина не тронута, событий нет
		cart, getErr := memory.NewCartRepository(f.store).GetByClientID(context.Background(), testClientID)
		require.NoError(t, getErr)
		assert.Len(t, cart.Items(), 2)
		assert.Empty(t, f.publisher.events)
	})
}

func TestApplyCoupon(t *testing.T) {
	t.Run("ten percent off items total", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		f.seedCoupon(t, "WELCOME10", 10, 5)
		order := f.createOrder(t)

		updated, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "WELCOME10")
		require.NoError(t, err)

		// 20000 − 2000 скидка + 1500 доставка
		assert.Equal(t, int64(2000), updated.Discount.AmountMinor)
		assert.Equal(t, int64(19500), updated.GrandTotal().AmountMinor)

		coupon, err := memory.NewCouponRepository(f.store).GetByCode(context.Background(), "WELCOME10")
		require.NoError(t, err)
		assert.Equal(t, int32(1), coupon.TimesUsed)

		assert.Contains(t, f.publisher.names(), "order.coupon_applied")
	})

	t.Run("expired coupon is not eligible", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		maxUses := int32(5)
		n := domain.NewNotification()
		expired := domain.NewCoupon(domain.CouponSpec{
			Code:            "EXPIRED",
			DiscountPercent: 10,
			ValidFrom:       time.Now().UTC().Add(-2 * time.Hour),
			ValidUntil:      time.Now().UTC().Add(-time.Hour),
			MaxUses:         &maxUses,
		}, n)
		require.False(t, n.HasErrors())
		f.store.PutCoupon(expired)

		_, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "EXPIRED")
		assert.ErrorIs(t, err, domain.ErrCouponNotEligible)
	})

	t.Run("fixed amount in foreign currency is not eligible and keeps quota", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		maxUses := int32(5)
		amount := mustMoney(t, 500, "USD")
		n := domain.NewNotification()
		foreign := domain.NewCoupon(domain.CouponSpec{
			Code:           "USD5",
			DiscountAmount: &amount,
			ValidFrom:      time.Now().UTC().Add(-time.Hour),
			ValidUntil:     time.Now().UTC().Add(time.Hour),
			MaxUses:        &maxUses,
		}, n)
		require.False(t, n.HasErrors())
		f.store.PutCoupon(foreign)

		_, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "USD5")
		assert.ErrorIs(t, err, domain.ErrCouponNotEligible)

		coupon, err := memory.NewCouponRepository(f.store).GetByCode(context.Background(), "USD5")
		require.NoError(t, err)
		assert.Equal(t, int32(0), coupon.TimesUsed, "quota must not burn for a zero-value discount")
	})

	t.Run("quota of one blocks the second order", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		f.seedCoupon(t, "ONESHOT", 10, 1)
		order := f.createOrder(t)

		_, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "ONESHOT")
		require.NoError(t, err)

		// Второй заказ того же клиента: купон уже исчерпан
		f.seedCart(t)
		second := f.createOrder(t)
		_, err = f.service.ApplyCoupon(context.Background(), testClientID, second.ID, "ONESHOT")
		assert.ErrorIs(t, err, domain.ErrCouponNotEligible)
	})

	t.Run("second coupon on same order is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		f.seedCoupon(t, "WELCOME10", 10, 5)
		f.seedCoupon(t, "EXTRA5", 5, 5)
		order := f.createOrder(t)

		_, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "WELCOME10")
		require.NoError(t, err)
		_, err = f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "EXTRA5")
		assert.ErrorIs(t, err, domain.ErrDiscountAlreadyApplied)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		_, err := f.service.ApplyCoupon(context.Background(), testClientID, order.ID, "NOPE")
		assert.ErrorIs(t, err, domain.ErrCouponNotFound)
	})

	t.Run("foreign order is indistinguishable from missing", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		f.seedCoupon(t, "WELCOME10", 10, 5)
		order := f.createOrder(t)

		_, err := f.service.ApplyCoupon(context.Background(), testOtherClientID, order.ID, "WELCOME10")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestProcessPayment(t *testing.T) {
	t.Run("approved payment moves order to processing", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		updated, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodCreditCard,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
		require.Len(t, updated.Payments(), 1)
		payment := updated.Payments()[0]
		assert.Equal(t, domain.PaymentStatusApproved, payment.Status)
		assert.Equal(t, updated.GrandTotal(), payment.Amount)
		assert.NotEmpty(t, payment.TransactionID)

		assert.Contains(t, f.publisher.names(), "payment.approved")
		assert.Contains(t, f.publisher.names(), "order.status_changed")
	})

	t.Run("declined payment keeps order pending and is persisted", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)
		f.gateway.Approved = false
		f.gateway.DeclineReason = "insufficient funds"

		updated, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodCreditCard,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusPending, updated.Status)

		stored, err := memory.NewOrderRepository(f.store).Get(context.Background(), order.ID)
		require.NoError(t, err)
		require.Len(t, stored.Payments(), 1)
		assert.Equal(t, domain.PaymentStatusDeclined, stored.Payments()[0].Status)
		assert.Equal(t, "insufficient funds", stored.Payments()[0].DeclineReason)

		assert.Contains(t, f.publisher.names(), "payment.declined")

		// Повторная попытка после отказа допустима
		f.gateway.Approved = true
		retried, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodPix,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusProcessing, retried.Status)
	})

	t.Run("payment on processing order is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		_, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodPix,
		})
		require.NoError(t, err)

		_, err = f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodPix,
		})
		assert.True(t, domain.IsStateTransition(err), "expected state transition error, got %v", err)
	})

	t.Run("gateway failure maps to internal error", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)
		f.gateway.Err = errors.New("gateway timeout")

		_, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodPix,
		})
		assert.ErrorIs(t, err, domain.ErrInternal)
	})
}

func TestFulfillmentLifecycle(t *testing.T) {
	t.Run("processing to shipped to delivered", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		_, err := f.service.ProcessPayment(context.Background(), ProcessPaymentInput{
			ClientID: testClientID,
			OrderID:  order.ID,
			Method:   domain.PaymentMethodPix,
		})
		require.NoError(t, err)

		shipped, err := f.service.ShipOrder(context.Background(), testClientID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusShipped, shipped.Status)

		delivered, err := f.service.DeliverOrder(context.Background(), testClientID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)

		// Терминальный статус: отмена невозможна
		_, err = f.service.CancelOrder(context.Background(), testClientID, order.ID)
		assert.True(t, domain.IsStateTransition(err), "expected state transition error, got %v", err)
	})

	t.Run("pending order cannot be shipped", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		_, err := f.service.ShipOrder(context.Background(), testClientID, order.ID)
		assert.True(t, domain.IsStateTransition(err), "expected state transition error, got %v", err)
	})

	t.Run("pending order can be canceled", func(t *testing.T) {
		f := newFixture(t)
		f.seedCart(t)
		order := f.createOrder(t)

		canceled, err := f.service.CancelOrder(context.Background(), testClientID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCanceled, canceled.Status)
	})
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t)
	first := f.createOrder(t)
	f.seedCart(t)
	second := f.createOrder(t)

	orders, err := f.service.ListOrders(context.Background(), testClientID, 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	ids := []string{orders[0].ID, orders[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

// failingUnitOfWorkFactory подменяет репозиторий заказов на всегда
// падающий: проверка отката транзакции.
type failingUnitOfWorkFactory struct {
	inner domain.UnitOfWorkFactory
}

func (f *failingUnitOfWorkFactory) New() domain.UnitOfWork {
	return &failingUnitOfWork{UnitOfWork: f.inner.New()}
}

type failingUnitOfWork struct {
	domain.UnitOfWork
}

func (f *failingUnitOfWork) Orders() domain.OrderRepository {
	return failingOrderRepository{inner: f.UnitOfWork.Orders()}
}

type failingOrderRepository struct {
	inner domain.OrderRepository
}

func (r failingOrderRepository) Insert(context.Context, *domain.Order) error {
	return errors.New("storage is down")
}

func (r failingOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.inner.Update(ctx, order)
}

func (r failingOrderRepository) AddPayment(ctx context.Context, payment domain.Payment) error {
	return r.inner.AddPayment(ctx, payment)
}

func (r failingOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.inner.Get(ctx, id)
}

func (r failingOrderRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]*domain.Order, error) {
	return r.inner.ListByClient(ctx, clientID, limit)
}
