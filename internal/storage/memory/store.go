package memory

import (
	"sync"
	"time"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// Store — общее in-memory хранилище всех агрегатов для локальной
// разработки и тестов. Транзакционность реализована снимком состояния
// (см. unit_of_work.go); конкурентную изоляцию обеспечивает
// PostgreSQL-реализация.
type Store struct {
	mu sync.RWMutex

	carts          map[string]cartRecord
	cartIDByClient map[string]string

	coupons        map[string]domain.Coupon
	couponIDByCode map[string]string

	orders map[string]domain.OrderState

	clients   map[string]domain.Client
	addresses map[string]domain.Address
	variants  map[string]domain.ProductVariant
}

type cartRecord struct {
	ID        string
	ClientID  string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []domain.CartItem
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		carts:          make(map[string]cartRecord),
		cartIDByClient: make(map[string]string),
		coupons:        make(map[string]domain.Coupon),
		couponIDByCode: make(map[string]string),
		orders:         make(map[string]domain.OrderState),
		clients:        make(map[string]domain.Client),
		addresses:      make(map[string]domain.Address),
		variants:       make(map[string]domain.ProductVariant),
	}
}

// PutClient добавляет клиента (seed для разработки и тестов).
func (s *Store) PutClient(client domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
}

// PutAddress добавляет адрес клиента.
func (s *Store) PutAddress(address domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[address.ID] = address
}

// PutVariant добавляет позицию каталога.
func (s *Store) PutVariant(variant domain.ProductVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[variant.ID] = variant
}

// PutCoupon добавляет купон.
func (s *Store) PutCoupon(coupon *domain.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[coupon.ID] = cloneCoupon(*coupon)
	s.couponIDByCode[coupon.Code] = coupon.ID
}

// snapshot делает глубокую копию состояния для отката транзакции.
func (s *Store) snapshot() *storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &storeSnapshot{
		carts:          make(map[string]cartRecord, len(s.carts)),
		cartIDByClient: make(map[string]string, len(s.cartIDByClient)),
		coupons:        make(map[string]domain.Coupon, len(s.coupons)),
		couponIDByCode: make(map[string]string, len(s.couponIDByCode)),
		orders:         make(map[string]domain.OrderState, len(s.orders)),
	}
	for id, record := range s.carts {
		snap.carts[id] = cloneCartRecord(record)
	}
	for clientID, cartID := range s.cartIDByClient {
		snap.cartIDByClient[clientID] = cartID
	}
	for id, coupon := range s.coupons {
		snap.coupons[id] = cloneCoupon(coupon)
	}
	for code, id := range s.couponIDByCode {
		snap.couponIDByCode[code] = id
	}
	for id, state := range s.orders {
		snap.orders[id] = cloneOrderState(state)
	}
	return snap
}

// restore возвращает состояние к снимку.
func (s *Store) restore(snap *storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts = snap.carts
	s.cartIDByClient = snap.cartIDByClient
	s.coupons = snap.coupons
	s.couponIDByCode = snap.couponIDByCode
	s.orders = snap.orders
}

type storeSnapshot struct {
	carts          map[string]cartRecord
	cartIDByClient map[string]string
	coupons        map[string]domain.Coupon
	couponIDByCode map[string]string
	orders         map[string]domain.OrderState
}

func cloneCartRecord(record cartRecord) cartRecord {
	items := make([]domain.CartItem, len(record.Items))
	copy(items, record.Items)
	record.Items = items
	return record
}

func cloneCoupon(coupon domain.Coupon) domain.Coupon {
	if coupon.DiscountAmount != nil {
		amount := *coupon.DiscountAmount
		coupon.DiscountAmount = &amount
	}
	if coupon.MinPurchaseAmount != nil {
		amount := *coupon.MinPurchaseAmount
		coupon.MinPurchaseAmount = &amount
	}
	if coupon.MaxUses != nil {
		maxUses := *coupon.MaxUses
		coupon.MaxUses = &maxUses
	}
	return coupon
}

func cloneOrderState(state domain.OrderState) domain.OrderState {
	items := make([]domain.OrderItem, len(state.Items))
	copy(items, state.Items)
	state.Items = items

	payments := make([]domain.Payment, len(state.Payments))
	copy(payments, state.Payments)
	for idx := range payments {
		if payments[idx].ProcessedAt != nil {
			processedAt := *payments[idx].ProcessedAt
			payments[idx].ProcessedAt = &processedAt
		}
	}
	state.Payments = payments
	return state
}
