package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики сценариев оформления заказа.
type CheckoutMetrics struct {
	// Счётчики операций
	ordersCreated    prometheus.Counter
	couponsApplied   prometheus.Counter
	couponsRejected  *prometheus.CounterVec
	paymentsApproved prometheus.Counter
	paymentsDeclined prometheus.Counter
	versionConflicts *prometheus.CounterVec

	// Гистограммы времени выполнения
	checkoutDuration *prometheus.HistogramVec

	// Счётчики публикации событий
	eventsPublished prometheus.Counter
	eventsDropped   prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики в default-регистре. Повторный вызов
// переиспользует уже зарегистрированные коллекторы.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_orders_created_total",
			Help: "Total number of orders created from carts",
		}),
		couponsApplied: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_coupons_applied_total",
			Help: "Total number of coupons successfully applied to orders",
		}),
		couponsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bcommerce_coupons_rejected_total",
			Help: "Total number of coupon applications rejected",
		}, []string{"reason"}),
		paymentsApproved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_payments_approved_total",
			Help: "Total number of payments approved by the gateway",
		}),
		paymentsDeclined: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_payments_declined_total",
			Help: "Total number of payments declined by the gateway",
		}),
		versionConflicts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bcommerce_version_conflicts_total",
			Help: "Total number of optimistic locking conflicts",
		}, []string{"entity"}),
		checkoutDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "bcommerce_checkout_duration_seconds",
			Help:    "Duration of checkout use cases in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		eventsPublished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_events_published_total",
			Help: "Total number of domain events published after commit",
		}),
		eventsDropped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bcommerce_events_dropped_total",
			Help: "Total number of domain events that failed to publish",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordCouponApplied увеличивает счётчик применённых купонов.
func (m *CheckoutMetrics) RecordCouponApplied() {
	m.couponsApplied.Inc()
}

// RecordCouponRejected увеличивает счётчик отклонённых купонов.
func (m *CheckoutMetrics) RecordCouponRejected(reason string) {
	m.couponsRejected.WithLabelValues(reason).Inc()
}

// RecordPaymentApproved увеличивает счётчик одобренных платежей.
func (m *CheckoutMetrics) RecordPaymentApproved() {
	m.paymentsApproved.Inc()
}

// RecordPaymentDeclined увеличивает счётчик отклонённых платежей.
func (m *CheckoutMetrics) RecordPaymentDeclined() {
	m.paymentsDeclined.Inc()
}

// RecordVersionConflict увеличивает счётчик конфликтов optimistic locking.
func (m *CheckoutMetrics) RecordVersionConflict(entity string) {
	m.versionConflicts.WithLabelValues(entity).Inc()
}

// RecordCheckoutDuration записывает время выполнения сценария.
func (m *CheckoutMetrics) RecordCheckoutDuration(operation string, duration time.Duration) {
	m.checkoutDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *CheckoutMetrics) RecordEventPublished() {
	m.eventsPublished.Inc()
}

// RecordEventDropped увеличивает счётчик событий, не дошедших до брокера.
func (m *CheckoutMetrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}
