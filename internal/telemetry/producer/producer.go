// Package producer publishes directory events to a message broker for downstream consumers.
package producer

import (
	"context"

	"givebridge/backend/internal/telemetry/domain"
)

// Producer emits directory events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.DirectoryEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
