package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/brunodias77/bcommerce-server-sub000/internal/cache"
	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
	"github.com/brunodias77/bcommerce-server-sub000/internal/health"
	"github.com/brunodias77/bcommerce-server-sub000/internal/messaging/kafka"
	cartsvc "github.com/brunodias77/bcommerce-server-sub000/internal/service/cart"
	"github.com/brunodias77/bcommerce-server-sub000/internal/service/gateway"
	ordersvc "github.com/brunodias77/bcommerce-server-sub000/internal/service/order"
	"github.com/brunodias77/bcommerce-server-sub000/internal/storage/memory"
	"github.com/brunodias77/bcommerce-server-sub000/internal/storage/postgres"
)

// Dependencies содержит собранный граф зависимостей приложения.
type Dependencies struct {
	CartService  *cartsvc.Service
	OrderService *ordersvc.Service

	Health *health.Registry
	Logger *log.Entry

	pgStore       *postgres.Store
	kafkaProducer *kafka.Producer
	redisClient   *redis.Client
}

// NewDependencies собирает зависимости по конфигурации. Kafka и Redis
// подключаются best effort: недоступный брокер понижает публикацию
// событий до no-op, недоступный Redis отключает кэш корзины.
// NOTE: платёжный шлюз — mock; в production его заменяет клиент
// реального провайдера.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Health: health.NewRegistry(),
		Logger: logger,
	}

	// Купоны не нужны вне транзакции: сервис достаёт их через unit of work.
	var (
		uowFactory domain.UnitOfWorkFactory
		carts      domain.CartRepository
		orders     domain.OrderRepository
		clients    domain.ClientRepository
		addresses  domain.AddressRepository
		variants   domain.ProductVariantRepository
	)

	switch cfg.StorageDriver {
	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		deps.pgStore = store
		deps.Health.Register("postgres", health.CheckFunc(store.Ping))

		uowFactory = postgres.NewUnitOfWorkFactory(store)
		carts = postgres.NewCartRepository(store)
		orders = postgres.NewOrderRepository(store)
		clients = postgres.NewClientRepository(store)
		addresses = postgres.NewAddressRepository(store)
		variants = postgres.NewProductVariantRepository(store)
		logger.Info("postgres storage initialized")
	case StorageMemory:
		store := memory.NewStore()
		uowFactory = memory.NewUnitOfWorkFactory(store)
		carts = memory.NewCartRepository(store)
		orders = memory.NewOrderRepository(store)
		clients = memory.NewClientRepository(store)
		addresses = memory.NewAddressRepository(store)
		variants = memory.NewProductVariantRepository(store)
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}

	var publisher domain.EventPublisher = kafka.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			deps.kafkaProducer = producer
			publisher = kafka.NewPublisher(producer)
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, continuing without cart cache")
			_ = client.Close()
		} else {
			deps.redisClient = client
			cartCache = cache.NewRedisCache(client)
			deps.Health.Register("redis", health.CheckFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
			logger.WithField("addr", cfg.RedisAddr).Info("redis cart cache initialized")
		}
	}

	deps.CartService = cartsvc.NewService(
		carts,
		clients,
		variants,
		cartCache,
		logger.WithField("component", "cart-service"),
	)
	deps.OrderService = ordersvc.NewService(
		uowFactory,
		orders,
		clients,
		addresses,
		variants,
		gateway.NewMockGateway(),
		publisher,
		cartCache,
		logger.WithField("component", "order-service"),
	)

	return deps, nil
}

// Close освобождает внешние подключения в обратном порядке инициализации.
func (d *Dependencies) Close() {
	if d.kafkaProducer != nil {
		if err := d.kafkaProducer.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close kafka producer")
		}
	}
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.pgStore != nil {
		if err := d.pgStore.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
