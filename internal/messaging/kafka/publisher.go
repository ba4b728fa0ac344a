package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brunodias77/bcommerce-server-sub000/internal/domain"
)

// Topics для событий ядра заказов.
const (
	TopicOrderEvents   = "bcommerce.order.events"
	TopicPaymentEvents = "bcommerce.payment.events"
	TopicCartEvents    = "bcommerce.cart.events"
)

// sender — то, что умеет Producer. Выделено для подмены в тестах.
type sender interface {
	Send(topic, key string, payload []byte) error
}

// Publisher переводит доменные события в Kafka-сообщения. Диспетчеризация
// по явному type switch: новое событие без ветки здесь — ошибка на этапе
// публикации, а не тихо пропущенное сообщение.
type Publisher struct {
	sender sender
	logger *log.Entry
}

// NewPublisher создаёт publisher поверх producer.
func NewPublisher(producer *Producer) *Publisher {
	return newPublisher(producer)
}

func newPublisher(s sender) *Publisher {
	return &Publisher{
		sender: s,
		logger: log.WithField("component", "event-publisher"),
	}
}

// Publish сериализует событие и отправляет его в топик своего агрегата.
// Вызывается строго после commit транзакции сценария.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	envelope := eventEnvelope{
		EventType:  event.EventName(),
		OccurredAt: event.OccurredAt(),
	}

	var topic string
	switch e := event.(type) {
	case domain.OrderCreated:
		topic = TopicOrderEvents
		envelope.OrderID = e.OrderID
		envelope.ClientID = e.ClientID
		envelope.Payload = orderCreatedPayload{
			ReferenceCode:   e.ReferenceCode,
			GrandTotalMinor: e.GrandTotalMinor,
			Currency:        e.Currency,
		}
	case domain.CouponApplied:
		topic = TopicOrderEvents
		envelope.OrderID = e.OrderID
		envelope.Payload = couponAppliedPayload{
			CouponID:      e.CouponID,
			CouponCode:    e.CouponCode,
			DiscountMinor: e.DiscountMinor,
		}
	case domain.OrderStatusChanged:
		topic = TopicOrderEvents
		envelope.OrderID = e.OrderID
		envelope.Payload = statusChangedPayload{
			From: string(e.From),
			To:   string(e.To),
		}
	case domain.PaymentApproved:
		topic = TopicPaymentEvents
		envelope.OrderID = e.OrderID
		envelope.Payload = paymentApprovedPayload{
			PaymentID:     e.PaymentID,
			TransactionID: e.TransactionID,
			AmountMinor:   e.AmountMinor,
		}
	case domain.PaymentDeclined:
		topic = TopicPaymentEvents
		envelope.OrderID = e.OrderID
		envelope.Payload = paymentDeclinedPayload{
			PaymentID: e.PaymentID,
			Reason:    e.Reason,
		}
	case domain.CartCleared:
		topic = TopicCartEvents
		envelope.ClientID = e.ClientID
		envelope.Payload = cartClearedPayload{
			CartID: e.CartID,
		}
	default:
		return fmt.Errorf("unknown event type %T", event)
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}

	if err := p.sender.Send(topic, event.AggregateID(), data); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventName(), err)
	}

	p.logger.WithFields(log.Fields{
		"event": event.EventName(),
		"topic": topic,
		"key":   event.AggregateID(),
	}).Debug("domain event published")

	return nil
}

type eventEnvelope struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type orderCreatedPayload struct {
	ReferenceCode   string `json:"reference_code"`
	GrandTotalMinor int64  `json:"grand_total_minor"`
	Currency        string `json:"currency"`
}

type couponAppliedPayload struct {
	CouponID      string `json:"coupon_id"`
	CouponCode    string `json:"coupon_code"`
	DiscountMinor int64  `json:"discount_minor"`
}

type statusChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type paymentApprovedPayload struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	AmountMinor   int64  `json:"amount_minor"`
}

type paymentDeclinedPayload struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

type cartClearedPayload struct {
	CartID string `json:"cart_id"`
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NoopPublisher отбрасывает события. Используется, когда Kafka не
// сконфигурирована (локальная разработка, тесты).
type NoopPublisher struct{}

// Publish ничего не делает.
func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }

var _ domain.EventPublisher = NoopPublisher{}
