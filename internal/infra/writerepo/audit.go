package writerepo

import (
	"context"
	"log/slog"
	"time"

	"possync/internal/infra/db"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// AuditSink persists trail events. It is fire-and-forget: an audit insert
// failure is logged and never fails the operation that emitted it.
type AuditSink struct {
	db db.DBTX
}

func NewAuditSink(dbtx db.DBTX) shared.AuditSink {
	return &AuditSink{db: dbtx}
}

const insertAuditEventSQL = `
INSERT INTO audit_events (
    id, event_type, business_id, user_id, device_id, action_id,
    action_type, conflict_reason, detail, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *AuditSink) LogEvent(ctx context.Context, event shared.AuditEvent) {
	_, err := s.db.Exec(ctx, insertAuditEventSQL,
		uuid.New(), event.Type, event.BusinessID, event.UserID, event.DeviceID,
		event.ActionID, nullIfEmpty(event.ActionType), nullIfEmpty(event.ConflictReason),
		[]byte(event.Detail), time.Now(),
	)
	if err != nil {
		slog.Error("failed to write audit event",
			"event_type", event.Type,
			"business_id", event.BusinessID,
			"error", err.Error())
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
