package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"givebridge/backend/internal/telemetry/domain"
)

func collectSum(t *testing.T, reader *metric.ManualReader) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == eventCounterName {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("data type = %T, want Sum[int64]", m.Data)
				}
				return sum
			}
		}
	}
	t.Fatalf("metric %s not collected", eventCounterName)
	return metricdata.Sum[int64]{}
}

func TestNewEventCounter_NilProvider(t *testing.T) {
	em, err := NewEventCounter(nil)
	if err != nil {
		t.Fatalf("NewEventCounter(nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.DirectoryEvent{Type: domain.EventCreated}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

func TestEventCounter_CountsByType(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	em, err := NewEventCounter(mp)
	if err != nil {
		t.Fatalf("NewEventCounter: %v", err)
	}
	ctx := context.Background()
	created := &domain.DirectoryEvent{Type: domain.EventCreated, Source: domain.SourceWebhook, Role: "donor"}
	_ = em.Emit(ctx, created)
	_ = em.Emit(ctx, created)
	_ = em.Emit(ctx, &domain.DirectoryEvent{Type: domain.EventDeactivated, Source: domain.SourceWebhook, Role: "ngo"})
	_ = em.Emit(ctx, nil)

	sum := collectSum(t, reader)
	if !sum.IsMonotonic {
		t.Error("counter should be monotonic")
	}
	got := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("event_type"))
		got[v.AsString()] += dp.Value
	}
	if got[string(domain.EventCreated)] != 2 {
		t.Errorf("created = %d, want 2", got[string(domain.EventCreated)])
	}
	if got[string(domain.EventDeactivated)] != 1 {
		t.Errorf("deactivated = %d, want 1", got[string(domain.EventDeactivated)])
	}
}
