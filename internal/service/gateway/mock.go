package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для локальной
// разработки и тестов.
type MockGateway struct {
	Approved      bool
	DeclineReason string
	Err           error

	ChargeCalls int
}

// NewMockGateway возвращает шлюз, одобряющий все списания.
func NewMockGateway() *MockGateway {
	return &MockGateway{Approved: true}
}

// Charge возвращает заранее настроенный результат и считает вызовы.
// Для одобренного списания генерируется уникальный transaction id.
func (m *MockGateway) Charge(_ context.Context, _ *domain.Order, _ string) (domain.GatewayResult, error) {
	m.ChargeCalls++
	if m.Err != nil {
		return domain.GatewayResult{}, m.Err
	}
	if !m.Approved {
		return domain.GatewayResult{Approved: false, DeclineReason: m.DeclineReason}, nil
	}
	return domain.GatewayResult{
		Approved:      true,
		TransactionID: "mock-" + uuid.NewString(),
	}, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
