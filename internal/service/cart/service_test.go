package cart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunodias77/bcommerce-server-sub000/internal/cache"
	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
	"github.com/brunodias77/bcommerce-server-sub000/internal/storage/memory"
)

const (
	testClientID  = "11111111-1111-1111-1111-111111111111"
	testVariantID = "55555555-5555-5555-5555-555555555555"
)

// fakeCache — CartCache поверх map, с подсчётом обращений.
type fakeCache struct {
	carts   map[string]*domain.Cart
	gets    int
	sets    int
	deletes int
	failing bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{carts: make(map[string]*domain.Cart)}
}

func (c *fakeCache) Get(_ context.Context, clientID string) (*domain.Cart, error) {
	c.gets++
	if c.failing {
		return nil, errors.New("cache is down")
	}
	cart, ok := c.carts[clientID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *fakeCache) Set(_ context.Context, clientID string, cart *domain.Cart) error {
	c.sets++
	if c.failing {
		return errors.New("cache is down")
	}
	c.carts[clientID] = cart
	return nil
}

func (c *fakeCache) Delete(_ context.Context, clientID string) error {
	c.deletes++
	if c.failing {
		return errors.New("cache is down")
	}
	delete(c.carts, clientID)
	return nil
}

type fixture struct {
	store   *memory.Store
	service *Service
	cache   *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutClient(domain.Client{ID: testClientID, Name: "Bruno", Email: "bruno@example.com"})

	price, err := domain.NewMoney(5000, "BRL")
	require.NoError(t, err)
	store.PutVariant(domain.ProductVariant{
		ID:    testVariantID,
		SKU:   "TS-001",
		Name:  "Camiseta",
		Price: price,
	})

	cartCache := newFakeCache()
	service := NewService(
		memory.NewCartRepository(store),
		memory.NewClientRepository(store),
		memory.NewProductVariantRepository(store),
		cartCache,
		nil,
	)

	return &fixture{store: store, service: service, cache: cartCache}
}

func TestAddItem(t *testing.T) {
	t.Run("first add creates the cart lazily", func(t *testing.T) {
		f := newFixture(t)

		cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		require.NoError(t, err)

		require.Len(t, cart.Items(), 1)
		assert.Equal(t, int32(2), cart.Items()[0].Quantity)
		assert.Equal(t, int64(5000), cart.Items()[0].UnitPrice.AmountMinor)

		stored, err := memory.NewCartRepository(f.store).GetByClientID(context.Background(), testClientID)
		require.NoError(t, err)
		assert.Len(t, stored.Items(), 1)
		assert.Equal(t, 1, f.cache.sets)
	})

	t.Run("repeated add merges quantities", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		require.NoError(t, err)
		cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 3)
		require.NoError(t, err)

		require.Len(t, cart.Items(), 1)
		assert.Equal(t, int32(5), cart.Items()[0].Quantity)
	})

	t.Run("unknown client", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.AddItem(context.Background(), "no-such-client", testVariantID, 1)
		assert.ErrorIs(t, err, domain.ErrClientNotFound)
	})

	t.Run("unknown variant", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.AddItem(context.Background(), testClientID, "no-such-variant", 1)
		assert.ErrorIs(t, err, domain.ErrProductVariantNotFound)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 0)
		assert.ErrorIs(t, err, domain.ErrQuantityInvalid)
	})
}

func TestGetCart(t *testing.T) {
	t.Run("miss falls through to storage and warms the cache", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 1)
		require.NoError(t, err)
		delete(f.cache.carts, testClientID)

		cart, err := f.service.GetCart(context.Background(), testClientID)
		require.NoError(t, err)
		assert.Len(t, cart.Items(), 1)
		assert.Contains(t, f.cache.carts, testClientID)
	})

	t.Run("hit skips storage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 1)
		require.NoError(t, err)

		sets := f.cache.sets
		_, err = f.service.GetCart(context.Background(), testClientID)
		require.NoError(t, err)
		assert.Equal(t, sets, f.cache.sets, "cache hit must not re-warm")
	})

	t.Run("cache failure degrades to storage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 1)
		require.NoError(t, err)
		f.cache.failing = true

		cart, err := f.service.GetCart(context.Background(), testClientID)
		require.NoError(t, err)
		assert.Len(t, cart.Items(), 1)
	})

	t.Run("missing cart", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.GetCart(context.Background(), testClientID)
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})
}

func TestUpdateItemQuantity(t *testing.T) {
	t.Run("sets the new quantity", func(t *testing.T) {
		f := newFixture(t)
		cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		require.NoError(t, err)
		itemID := cart.Items()[0].ID

		updated, err := f.service.UpdateItemQuantity(context.Background(), testClientID, itemID, 7)
		require.NoError(t, err)
		assert.Equal(t, int32(7), updated.Items()[0].Quantity)
	})

	t.Run("zero removes the item", func(t *testing.T) {
		f := newFixture(t)
		cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		require.NoError(t, err)
		itemID := cart.Items()[0].ID

		updated, err := f.service.UpdateItemQuantity(context.Background(), testClientID, itemID, 0)
		require.NoError(t, err)
		assert.True(t, updated.IsEmpty())
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		require.NoError(t, err)

		_, err = f.service.UpdateItemQuantity(context.Background(), testClientID, "no-such-item", 7)
		assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
	})
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
	require.NoError(t, err)
	itemID := cart.Items()[0].ID

	updated, err := f.service.RemoveItem(context.Background(), testClientID, itemID)
	require.NoError(t, err)
	assert.True(t, updated.IsEmpty())

	// Повторное удаление — no-op
	again, err := f.service.RemoveItem(context.Background(), testClientID, itemID)
	require.NoError(t, err)
	assert.True(t, again.IsEmpty())
}

// brokenCartRepository имитирует отказавшее хранилище: чтение и запись
// падают с низкоуровневой ошибкой драйвера.
type brokenCartRepository struct {
	inner    domain.CartRepository
	readErr  error
	writeErr error
}

func (r *brokenCartRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Cart, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	return r.inner.GetByClientID(ctx, clientID)
}

func (r *brokenCartRepository) Insert(ctx context.Context, cart *domain.Cart) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	return r.inner.Insert(ctx, cart)
}

func (r *brokenCartRepository) Update(ctx context.Context, cart *domain.Cart) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	return r.inner.Update(ctx, cart)
}

func TestInfrastructureErrorsAreMasked(t *testing.T) {
	infraErr := errors.New("select cart: connection refused to 10.0.0.5:5432")

	newBrokenService := func(t *testing.T, broken *brokenCartRepository) (*fixture, *Service) {
		t.Helper()
		f := newFixture(t)
		broken.inner = memory.NewCartRepository(f.store)
		svc := NewService(
			broken,
			memory.NewClientRepository(f.store),
			memory.NewProductVariantRepository(f.store),
			f.cache,
			nil,
		)
		return f, svc
	}

	t.Run("get cart", func(t *testing.T) {
		_, svc := newBrokenService(t, &brokenCartRepository{readErr: infraErr})

		_, err := svc.GetCart(context.Background(), testClientID)
		if !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
		if strings.Contains(err.Error(), "10.0.0.5") {
			t.Errorf("storage details leaked to the caller: %v", err)
		}
	})

	t.Run("add item", func(t *testing.T) {
		_, svc := newBrokenService(t, &brokenCartRepository{writeErr: infraErr})

		_, err := svc.AddItem(context.Background(), testClientID, testVariantID, 1)
		if !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
	})

	t.Run("update item quantity", func(t *testing.T) {
		f, svc := newBrokenService(t, &brokenCartRepository{writeErr: infraErr})
		cart, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
		if err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		_, err = svc.UpdateItemQuantity(context.Background(), testClientID, cart.Items()[0].ID, 5)
		if !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
	})

	t.Run("clear cart", func(t *testing.T) {
		f, svc := newBrokenService(t, &brokenCartRepository{writeErr: infraErr})
		if _, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		if err := svc.ClearCart(context.Background(), testClientID); !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
	})

	t.Run("business errors pass through untouched", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.GetCart(context.Background(), testClientID)
		if !errors.Is(err, domain.ErrCartNotFound) {
			t.Fatalf("expected ErrCartNotFound, got %v", err)
		}
	})
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.AddItem(context.Background(), testClientID, testVariantID, 2)
	require.NoError(t, err)

	require.NoError(t, f.service.ClearCart(context.Background(), testClientID))

	stored, err := memory.NewCartRepository(f.store).GetByClientID(context.Background(), testClientID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
	assert.NotContains(t, f.cache.carts, testClientID)
}
