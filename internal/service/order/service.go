package order

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brunodias77/bcommerce-server-sub000/internal/cache"
	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
	"github.com/brunodias77/bcommerce-server-sub000/internal/metrics"
)

// Service реализует сценарии заказа: создание из корзины, применение
// купона, обработка оплаты и жизненный цикл доставки. Каждый сценарий
// берёт свежий unit of work у фабрики; события публикуются строго после
// commit.
type Service struct {
	uowFactory domain.UnitOfWorkFactory
	orders     domain.OrderRepository
	clients    domain.ClientRepository
	addresses  domain.AddressRepository
	variants   domain.ProductVariantRepository
	gateway    domain.PaymentGateway
	publisher  domain.EventPublisher
	cartCache  cache.CartCache
	logger     *log.Entry
	metrics    *metrics.CheckoutMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	uowFactory domain.UnitOfWorkFactory,
	orders domain.OrderRepository,
	clients domain.ClientRepository,
	addresses domain.AddressRepository,
	variants domain.ProductVariantRepository,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
	cartCache cache.CartCache,
	logger *log.Entry,
) *Service {
	s := newService(uowFactory, orders, clients, addresses, variants, gateway, publisher, cartCache, logger)
	s.metrics = metrics.NewCheckoutMetrics()
	return s
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	uowFactory domain.UnitOfWorkFactory,
	orders domain.OrderRepository,
	clients domain.ClientRepository,
	addresses domain.AddressRepository,
	variants domain.ProductVariantRepository,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
	cartCache cache.CartCache,
	logger *log.Entry,
) *Service {
	return newService(uowFactory, orders, clients, addresses, variants, gateway, publisher, cartCache, logger)
}

func newService(
	uowFactory domain.UnitOfWorkFactory,
	orders domain.OrderRepository,
	clients domain.ClientRepository,
	addresses domain.AddressRepository,
	variants domain.ProductVariantRepository,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
	cartCache cache.CartCache,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Service{
		uowFactory: uowFactory,
		orders:     orders,
		clients:    clients,
		addresses:  addresses,
		variants:   variants,
		gateway:    gateway,
		publisher:  publisher,
		cartCache:  cartCache,
		logger:     logger,
	}
}

// CreateOrderInput — входные данные сценария создания заказа.
type CreateOrderInput struct {
	ClientID          string
	ShippingAddressID string
	BillingAddressID  string
	Shipping          domain.Money
	Notes             string
}

// CreateOrder конвертирует непустую корзину клиента в заказ. Вставка
// заказа и опустошение корзины фиксируются одной транзакцией; после
// commit публикуются OrderCreated и CartCleared.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	start := time.Now()
	defer s.observe("create_order", start)

	if _, err := s.clients.Get(ctx, input.ClientID); err != nil {
		return nil, s.mapError(err, "load client", log.Fields{"client_id": input.ClientID})
	}

	shippingAddress, err := s.loadClientAddress(ctx, input.ClientID, input.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	billingAddress, err := s.loadClientAddress(ctx, input.ClientID, input.BillingAddressID)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, s.mapError(err, "begin transaction", nil)
	}
	defer func() { _ = uow.Rollback() }() // no-op после commit

	cart, err := uow.Carts().GetByClientID(ctx, input.ClientID)
	if err != nil {
		return nil, s.mapError(err, "load cart", log.Fields{"client_id": input.ClientID})
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	lines, err := s.snapshotLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	n := domain.NewNotification()
	order := domain.NewOrderFromCart(input.ClientID, lines, input.Shipping,
		shippingAddress.Snapshot(), billingAddress.Snapshot(), input.Notes, n)
	if n.HasErrors() {
		return nil, n.Err()
	}

	if err := uow.Orders().Insert(ctx, order); err != nil {
		return nil, s.mapError(err, "insert order", log.Fields{"order_id": order.ID})
	}

	cart.Clear()
	if err := uow.Carts().Update(ctx, cart); err != nil {
		return nil, s.mapError(err, "clear cart", log.Fields{"cart_id": cart.ID})
	}

	if err := uow.Commit(); err != nil {
		return nil, s.mapError(err, "commit create order", log.Fields{"order_id": order.ID})
	}

	s.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"client_id":      order.ClientID,
		"reference_code": order.ReferenceCode,
	}).Info("order created")
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}

	events := order.PullEvents()
	events = append(events, domain.CartCleared{
		CartID:   cart.ID,
		ClientID: cart.ClientID,
		At:       time.Now().UTC(),
	})
	s.publish(ctx, events)
	s.invalidateCart(ctx, input.ClientID)

	return order, nil
}

// ApplyCoupon применяет промокод к pending-заказу клиента. Инкремент
// квоты купона и сохранение скидки происходят в одной транзакции.
func (s *Service) ApplyCoupon(ctx context.Context, clientID, orderID, couponCode string) (*domain.Order, error) {
	start := time.Now()
	defer s.observe("apply_coupon", start)

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, s.mapError(err, "begin transaction", nil)
	}
	defer func() { _ = uow.Rollback() }()

	order, err := s.loadClientOrder(ctx, uow.Orders(), clientID, orderID)
	if err != nil {
		return nil, err
	}

	coupon, err := uow.Coupons().GetByCode(ctx, couponCode)
	if err != nil {
		return nil, s.mapError(err, "load coupon", log.Fields{"coupon_code": couponCode})
	}

	if !coupon.IsValid(order.ItemsTotal, clientID) {
		s.rejectCoupon("not_eligible")
		return nil, domain.ErrCouponNotEligible
	}

	discount := coupon.CalculateDiscount(order.ItemsTotal)

	// Квота закрывается на стороне хранилища: UPDATE с предикатом по
	// times_used. Два конкурентных применения не превысят max_uses.
	if err := uow.Coupons().RedeemUse(ctx, coupon.ID); err != nil {
		if errors.Is(err, domain.ErrCouponQuotaExceeded) {
			s.rejectCoupon("quota_exceeded")
			return nil, err
		}
		return nil, s.mapError(err, "redeem coupon use", log.Fields{"coupon_id": coupon.ID})
	}

	if err := order.ApplyDiscount(coupon, discount); err != nil {
		return nil, err
	}

	if err := uow.Orders().Update(ctx, order); err != nil {
		return nil, s.mapError(err, "update order", log.Fields{"order_id": order.ID})
	}

	if err := uow.Commit(); err != nil {
		return nil, s.mapError(err, "commit apply coupon", log.Fields{"order_id": order.ID})
	}

	s.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"coupon_code":    coupon.Code,
		"discount_minor": discount.AmountMinor,
	}).Info("coupon applied")
	if s.metrics != nil {
		s.metrics.RecordCouponApplied()
	}

	s.publish(ctx, order.PullEvents())
	return order, nil
}

// ProcessPaymentInput — входные данные сценария оплаты.
type ProcessPaymentInput struct {
	ClientID           string
	OrderID            string
	Method             domain.PaymentMethod
	PaymentMethodToken string
}

// ProcessPayment проводит оплату pending-заказа. Обращение к шлюзу
// выполняется вне транзакции; результат (approve или decline) фиксируется
// одной транзакцией. Отклонённая попытка сохраняется, заказ остаётся
// pending и допускает повторную оплату.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*domain.Order, error) {
	start := time.Now()
	defer s.observe("process_payment", start)

	order, err := s.loadClientOrder(ctx, s.orders, input.ClientID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, &domain.StateTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(domain.OrderStatusProcessing),
		}
	}

	result, err := s.gateway.Charge(ctx, order, input.PaymentMethodToken)
	if err != nil {
		return nil, s.mapError(err, "charge payment gateway", log.Fields{"order_id": order.ID})
	}

	uow := s.uowFactory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, s.mapError(err, "begin transaction", nil)
	}
	defer func() { _ = uow.Rollback() }()

	// Перечитываем заказ внутри транзакции: версия могла уйти вперёд,
	// пока мы ждали шлюз.
	order, err = s.loadClientOrder(ctx, uow.Orders(), input.ClientID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, &domain.StateTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(domain.OrderStatusProcessing),
		}
	}

	n := domain.NewNotification()
	payment := domain.NewPayment(order.ID, order.GrandTotal(), input.Method, n)
	if n.HasErrors() {
		return nil, n.Err()
	}

	if result.Approved {
		if err := payment.MarkAsApproved(result.TransactionID); err != nil {
			return nil, err
		}
	} else {
		if err := payment.MarkAsDeclined(result.DeclineReason); err != nil {
			return nil, err
		}
	}

	order.RegisterPayment(payment)
	if err := uow.Orders().AddPayment(ctx, payment); err != nil {
		return nil, s.mapError(err, "persist payment", log.Fields{"order_id": order.ID})
	}

	if result.Approved {
		if err := order.SetAsProcessing(); err != nil {
			return nil, err
		}
		if err := uow.Orders().Update(ctx, order); err != nil {
			return nil, s.mapError(err, "update order", log.Fields{"order_id": order.ID})
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, s.mapError(err, "commit process payment", log.Fields{"order_id": order.ID})
	}

	if result.Approved {
		s.logger.WithFields(log.Fields{
			"order_id":       order.ID,
			"transaction_id": result.TransactionID,
		}).Info("payment approved")
		if s.metrics != nil {
			s.metrics.RecordPaymentApproved()
		}
	} else {
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"reason":   result.DeclineReason,
		}).Warn("payment declined")
		if s.metrics != nil {
			s.metrics.RecordPaymentDeclined()
		}
	}

	s.publish(ctx, order.PullEvents())
	return order, nil
}

// ShipOrder отмечает передачу заказа в доставку.
func (s *Service) ShipOrder(ctx context.Context, clientID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, clientID, orderID, "ship_order", (*domain.Order).Ship)
}

// DeliverOrder отмечает вручение заказа клиенту.
func (s *Service) DeliverOrder(ctx context.Context, clientID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, clientID, orderID, "deliver_order", (*domain.Order).Deliver)
}

// CancelOrder отменяет заказ до доставки.
func (s *Service) CancelOrder(ctx context.Context, clientID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, clientID, orderID, "cancel_order", (*domain.Order).Cancel)
}

// GetOrder возвращает заказ клиента.
func (s *Service) GetOrder(ctx context.Context, clientID, orderID string) (*domain.Order, error) {
	return s.loadClientOrder(ctx, s.orders, clientID, orderID)
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListOrders(ctx context.Context, clientID string, limit int) ([]*domain.Order, error) {
	orders, err := s.orders.ListByClient(ctx, clientID, limit)
	if err != nil {
		return nil, s.mapError(err, "list orders", log.Fields{"client_id": clientID})
	}
	return orders, nil
}

func (s *Service) transition(
	ctx context.Context,
	clientID, orderID, operation string,
	apply func(*domain.Order) error,
) (*domain.Order, error) {
	start := time.Now()
	defer s.observe(operation, start)

	order, err := s.loadClientOrder(ctx, s.orders, clientID, orderID)
	if err != nil {
		return nil, err
	}

	if err := apply(order); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		if domain.IsVersionConflict(err) && s.metrics != nil {
			s.metrics.RecordVersionConflict("order")
		}
		return nil, s.mapError(err, "update order", log.Fields{"order_id": order.ID})
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("order status changed")

	s.publish(ctx, order.PullEvents())
	return order, nil
}

// loadClientOrder возвращает заказ клиента. Чужой заказ неотличим от
// несуществующего: в обоих случаях ErrOrderNotFound.
func (s *Service) loadClientOrder(ctx context.Context, repo domain.OrderRepository, clientID, orderID string) (*domain.Order, error) {
	order, err := repo.Get(ctx, orderID)
	if err != nil {
		return nil, s.mapError(err, "load order", log.Fields{"order_id": orderID})
	}
	if order.ClientID != clientID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// loadClientAddress возвращает адрес клиента. Чужой адрес неотличим от
// несуществующего.
func (s *Service) loadClientAddress(ctx context.Context, clientID, addressID string) (domain.Address, error) {
	address, err := s.addresses.Get(ctx, addressID)
	if err != nil {
		return domain.Address{}, s.mapError(err, "load address", log.Fields{"address_id": addressID})
	}
	if address.ClientID != clientID {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}

// snapshotLines дополняет позиции корзины снимком каталога (sku, название).
// Цена берётся из корзины: её клиент уже видел.
func (s *Service) snapshotLines(ctx context.Context, cart *domain.Cart) ([]domain.OrderLine, error) {
	items := cart.Items()
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		variant, err := s.variants.Get(ctx, item.ProductVariantID)
		if err != nil {
			return nil, s.mapError(err, "load product variant", log.Fields{"product_variant_id": item.ProductVariantID})
		}
		lines = append(lines, domain.OrderLine{
			ProductVariantID: item.ProductVariantID,
			SKU:              variant.SKU,
			Name:             variant.Name,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
		})
	}
	return lines, nil
}

// publish отправляет события после commit. Ошибка публикации логируется,
// но не откатывает уже зафиксированный сценарий.
func (s *Service) publish(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WithError(err).WithField("event", event.EventName()).Error("failed to publish domain event")
			if s.metrics != nil {
				s.metrics.RecordEventDropped()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordEventPublished()
		}
	}
}

func (s *Service) invalidateCart(ctx context.Context, clientID string) {
	if err := s.cartCache.Delete(ctx, clientID); err != nil {
		s.logger.WithError(err).WithField("client_id", clientID).Warn("cart cache invalidation failed")
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordCheckoutDuration(operation, time.Since(start))
	}
}

func (s *Service) rejectCoupon(reason string) {
	if s.metrics != nil {
		s.metrics.RecordCouponRejected(reason)
	}
}

// mapError пропускает бизнес-ошибки как есть; инфраструктурные ошибки
// логируются с первопричиной и заменяются на ErrInternal, чтобы детали
// хранилища не утекали наружу.
func (s *Service) mapError(err error, msg string, fields log.Fields) error {
	if isBusinessError(err) {
		return err
	}
	entry := s.logger
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.WithError(err).Error(msg)
	return domain.ErrInternal
}

var businessErrors = []error{
	domain.ErrCartNotFound,
	domain.ErrCartItemNotFound,
	domain.ErrCartEmpty,
	domain.ErrCouponNotFound,
	domain.ErrCouponNotEligible,
	domain.ErrCouponQuotaExceeded,
	domain.ErrOrderNotFound,
	domain.ErrClientNotFound,
	domain.ErrAddressNotFound,
	domain.ErrProductVariantNotFound,
	domain.ErrDiscountImmutable,
	domain.ErrDiscountAlreadyApplied,
	domain.ErrCurrencyMismatch,
	domain.ErrQuantityInvalid,
	domain.ErrVersionConflict,
}

func isBusinessError(err error) bool {
	for _, sentinel := range businessErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return domain.IsStateTransition(err)
}

// noopPublisher отбрасывает события, когда брокер не сконфигурирован.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }
