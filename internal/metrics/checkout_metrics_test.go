package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCheckoutMetrics(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newCheckoutMetricsWithRegisterer should not return nil")
	}
	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.couponsApplied == nil {
		t.Error("couponsApplied counter should not be nil")
	}
	if metrics.couponsRejected == nil {
		t.Error("couponsRejected counter vec should not be nil")
	}
	if metrics.paymentsApproved == nil {
		t.Error("paymentsApproved counter should not be nil")
	}
	if metrics.paymentsDeclined == nil {
		t.Error("paymentsDeclined counter should not be nil")
	}
	if metrics.versionConflicts == nil {
		t.Error("versionConflicts counter vec should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram vec should not be nil")
	}
	if metrics.eventsPublished == nil {
		t.Error("eventsPublished counter should not be nil")
	}
	if metrics.eventsDropped == nil {
		t.Error("eventsDropped counter should not be nil")
	}
}

func TestNewCheckoutMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(reg)
	second := newCheckoutMetricsWithRegisterer(reg)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := second.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOrderCreated(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := metrics.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCouponRejectedByReason(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCouponRejected("not_eligible")
	metrics.RecordCouponRejected("not_eligible")
	metrics.RecordCouponRejected("quota_exceeded")

	counter, err := metrics.couponsRejected.GetMetricWithLabelValues("not_eligible")
	if err != nil {
		t.Fatalf("get labeled counter: %v", err)
	}

	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutDuration(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheckoutDuration("create_order", 150*time.Millisecond)

	histogram, err := metrics.checkoutDuration.GetMetricWithLabelValues("create_order")
	if err != nil {
		t.Fatalf("get labeled histogram: %v", err)
	}

	metric := &dto.Metric{}
	if err := histogram.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected one observation, got %d", metric.Histogram.GetSampleCount())
	}
}
