// Package audit records sensitive billing transitions to a dedicated
// structured log stream, keeping a machine-readable trail separate from
// operational logging.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

// Logger implements port.AuditLogger on top of zap.
type Logger struct {
	log *zap.Logger
}

// NewLogger creates an audit logger writing to the given zap logger
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Named("audit")}
}

// Record writes one audit entry. Non-sensitive events are skipped; the
// claim change log already covers routine activity.
func (l *Logger) Record(ctx context.Context, evt *event.Event) error {
	if !evt.Type.Sensitive() {
		return nil
	}

	l.log.Info("audit",
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)),
		zap.Int64("company_id", evt.CompanyID),
		zap.Int64("actor_id", evt.ActorID),
		zap.Int64("unit_id", evt.UnitID),
		zap.Int64("claim_id", evt.ClaimID),
		zap.Any("payload", evt.Payload),
		zap.Time("occurred_at", evt.Timestamp),
	)
	return nil
}

// Verify interface compliance
var _ port.AuditLogger = (*Logger)(nil)
