package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"givebridge/backend/internal/telemetry"
	"givebridge/backend/internal/telemetry/domain"
)

const eventCounterName = "givebridge.directory.events"

type eventCounter struct {
	counter otelmetric.Int64Counter
}

// NewEventCounter returns an EventEmitter that counts directory events by type, source and role.
// A nil provider yields a no-op emitter.
func NewEventCounter(provider otelmetric.MeterProvider) (telemetry.EventEmitter, error) {
	if provider == nil {
		return noopEmitter{}, nil
	}
	c, err := provider.Meter(instrumentationName).Int64Counter(
		eventCounterName,
		otelmetric.WithDescription("Directory state changes applied by the identity bridge."),
		otelmetric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &eventCounter{counter: c}, nil
}

func (e *eventCounter) Emit(ctx context.Context, event *domain.DirectoryEvent) error {
	if event == nil {
		return nil
	}
	e.counter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("event_type", string(event.Type)),
		attribute.String("source", string(event.Source)),
		attribute.String("role", event.Role),
	))
	return nil
}
