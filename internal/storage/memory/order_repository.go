package memory

import (
	"context"
	"sort"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository возвращает in-memory реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Insert(_ context.Context, order *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.store.orders[order.ID] = orderState(order)
	return nil
}

func (r *orderRepository) Update(_ context.Context, order *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}

	state := orderState(order)
	state.Version = order.Version + 1
	// Платежи сохраняются отдельным AddPayment, не затираем их.
	state.Payments = current.Payments
	r.store.orders[order.ID] = state
	order.Version++
	return nil
}

func (r *orderRepository) AddPayment(_ context.Context, payment domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, ok := r.store.orders[payment.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	state.Payments = append(state.Payments, payment)
	r.store.orders[payment.OrderID] = state
	return nil
}

func (r *orderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	state, ok := r.store.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.RestoreOrder(cloneOrderState(state)), nil
}

func (r *orderRepository) ListByClient(_ context.Context, clientID string, limit int) ([]*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	states := make([]domain.OrderState, 0)
	for _, state := range r.store.orders {
		if state.ClientID != clientID {
			continue
		}
		states = append(states, cloneOrderState(state))
	}

	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.After(states[j].CreatedAt)
		}
		return states[i].ID > states[j].ID
	})

	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	orders := make([]*domain.Order, 0, len(states))
	for _, state := range states {
		orders = append(orders, domain.RestoreOrder(state))
	}
	return orders, nil
}

func orderState(order *domain.Order) domain.OrderState {
	return domain.OrderState{
		ID:              order.ID,
		ReferenceCode:   order.ReferenceCode,
		ClientID:        order.ClientID,
		CouponID:        order.CouponID,
		Status:          order.Status,
		ItemsTotal:      order.ItemsTotal,
		Discount:        order.Discount,
		Shipping:        order.Shipping,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		Notes:           order.Notes,
		Version:         order.Version,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		Items:           order.Items(),
		Payments:        order.Payments(),
	}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
