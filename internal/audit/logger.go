// Package audit writes an audit trail line for every committed directory change.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"givebridge/backend/internal/telemetry/domain"
)

// SystemActor is recorded when a change has no authenticated caller (provider webhooks).
const SystemActor = "_system"

// Logger implements telemetry.EventEmitter by writing each directory event to a
// dedicated zap logger named "audit". It never fails the caller.
type Logger struct {
	log *zap.Logger
}

// NewLogger returns an audit Logger writing through base. base may be nil (discard).
func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{log: base.Named("audit")}
}

// Emit writes one audit line. Admin and self-service changes are attributed to the
// affected user; provider-driven changes to SystemActor.
func (l *Logger) Emit(ctx context.Context, event *domain.DirectoryEvent) error {
	if event == nil {
		return nil
	}
	actor := event.UserID
	if event.Source == domain.SourceWebhook {
		actor = SystemActor
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	l.log.Info(string(event.Type),
		zap.String("source", string(event.Source)),
		zap.String("actor", actor),
		zap.String("user_id", event.UserID),
		zap.String("external_id", event.ExternalID),
		zap.String("role", event.Role),
		zap.String("reason", event.Reason),
		zap.Int64("version", event.Version),
		zap.Time("occurred_at", occurred),
	)
	return nil
}
