package cart

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/brunodias77/bcommerce-server-sub000/internal/cache"
	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// Service реализует сценарии работы с корзиной. Корзина создаётся лениво:
// первое добавление товара заводит запись, отдельной операции "создать
// корзину" нет.
type Service struct {
	carts    domain.CartRepository
	clients  domain.ClientRepository
	variants domain.ProductVariantRepository
	cache    cache.CartCache
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(
	carts domain.CartRepository,
	clients domain.ClientRepository,
	variants domain.ProductVariantRepository,
	cartCache cache.CartCache,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart-service")
	}
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	return &Service{
		carts:    carts,
		clients:  clients,
		variants: variants,
		cache:    cartCache,
		logger:   logger,
	}
}

// GetCart возвращает корзину клиента. Промах кэша читает хранилище и
// прогревает кэш; отсутствие корзины — ErrCartNotFound.
func (s *Service) GetCart(ctx context.Context, clientID string) (*domain.Cart, error) {
	if cached, err := s.cache.Get(ctx, clientID); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).WithField("client_id", clientID).Warn("cart cache read failed")
	}

	cart, err := s.carts.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, s.mapError(err, "load cart", clientID)
	}

	s.warmCache(ctx, clientID, cart)
	return cart, nil
}

// AddItem добавляет вариант товара в корзину клиента. Цена снимается из
// каталога на момент вызова; повторное добавление того же варианта
// увеличивает количество.
func (s *Service) AddItem(ctx context.Context, clientID, productVariantID string, quantity int32) (*domain.Cart, error) {
	if _, err := s.clients.Get(ctx, clientID); err != nil {
		return nil, s.mapError(err, "load client", clientID)
	}

	variant, err := s.variants.Get(ctx, productVariantID)
	if err != nil {
		return nil, s.mapError(err, "load product variant", clientID)
	}

	cart, created, err := s.loadOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := cart.AddItem(variant.ID, quantity, variant.Price); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, cart, created); err != nil {
		return nil, s.mapError(err, "persist cart", clientID)
	}

	s.logger.WithFields(log.Fields{
		"client_id":          clientID,
		"product_variant_id": productVariantID,
		"quantity":           quantity,
	}).Info("cart item added")

	s.warmCache(ctx, clientID, cart)
	return cart, nil
}

// UpdateItemQuantity устанавливает количество позиции. Ноль удаляет
// позицию; неизвестный itemID — ErrCartItemNotFound.
func (s *Service) UpdateItemQuantity(ctx context.Context, clientID, itemID string, quantity int32) (*domain.Cart, error) {
	cart, err := s.carts.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, s.mapError(err, "load cart", clientID)
	}

	if err := cart.UpdateItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}

	if err := s.carts.Update(ctx, cart); err != nil {
		return nil, s.mapError(err, "update cart", clientID)
	}

	s.warmCache(ctx, clientID, cart)
	return cart, nil
}

// RemoveItem удаляет позицию из корзины. Повторное удаление — no-op.
func (s *Service) RemoveItem(ctx context.Context, clientID, itemID string) (*domain.Cart, error) {
	cart, err := s.carts.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, s.mapError(err, "load cart", clientID)
	}

	cart.RemoveItem(itemID)

	if err := s.carts.Update(ctx, cart); err != nil {
		return nil, s.mapError(err, "update cart", clientID)
	}

	s.warmCache(ctx, clientID, cart)
	return cart, nil
}

// ClearCart опустошает корзину клиента, сохраняя саму запись.
func (s *Service) ClearCart(ctx context.Context, clientID string) error {
	cart, err := s.carts.GetByClientID(ctx, clientID)
	if err != nil {
		return s.mapError(err, "load cart", clientID)
	}

	cart.Clear()

	if err := s.carts.Update(ctx, cart); err != nil {
		return s.mapError(err, "clear cart", clientID)
	}

	if err := s.cache.Delete(ctx, clientID); err != nil {
		s.logger.WithError(err).WithField("client_id", clientID).Warn("cart cache invalidation failed")
	}
	return nil
}

func (s *Service) loadOrCreate(ctx context.Context, clientID string) (*domain.Cart, bool, error) {
	cart, err := s.carts.GetByClientID(ctx, clientID)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, false, s.mapError(err, "load cart", clientID)
	}

	n := domain.NewNotification()
	cart = domain.NewCart(clientID, n)
	if n.HasErrors() {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrInternal, n.Err())
	}
	return cart, true, nil
}

func (s *Service) persist(ctx context.Context, cart *domain.Cart, created bool) error {
	if created {
		return s.carts.Insert(ctx, cart)
	}
	return s.carts.Update(ctx, cart)
}

// warmCache обновляет кэш по принципу best effort: ошибка кэша не
// фейлит сценарий.
func (s *Service) warmCache(ctx context.Context, clientID string, cart *domain.Cart) {
	if err := s.cache.Set(ctx, clientID, cart); err != nil {
		s.logger.WithError(err).WithField("client_id", clientID).Warn("cart cache write failed")
	}
}

// mapError пропускает бизнес-ошибки как есть; инфраструктурные ошибки
// логируются с первопричиной и заменяются на ErrInternal, чтобы детали
// хранилища не утекали наружу.
func (s *Service) mapError(err error, msg, clientID string) error {
	if isBusinessError(err) {
		return err
	}
	s.logger.WithError(err).WithField("client_id", clientID).Error(msg)
	return domain.ErrInternal
}

var businessErrors = []error{
	domain.ErrCartNotFound,
	domain.ErrCartItemNotFound,
	domain.ErrClientNotFound,
	domain.ErrProductVariantNotFound,
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
	return false
}
