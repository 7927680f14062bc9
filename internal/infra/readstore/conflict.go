package readstore

import (
	"context"
	"time"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type ConflictReadStore struct {
	db db.DBTX
}

func NewConflictReadStore(dbtx db.DBTX) queries.ConflictReadStore {
	return &ConflictReadStore{db: dbtx}
}

const conflictViewColumns = `
    id, device_id, user_id, action_type, checksum, local_audit_id,
    provisional_at, status, result, conflict_reason, conflict_data,
    error_message, created_at, synced_at, applied_at`

const listConflictsFirstPageSQL = `
SELECT` + conflictViewColumns + `
FROM offline_actions
WHERE business_id = $1 AND device_id = $2 AND status IN ('CONFLICT', 'REJECTED')
ORDER BY created_at DESC, id DESC
LIMIT $3`

// Keyset on (created_at, id) instead of OFFSET keeps deep pages cheap and
// stable while new conflicts arrive.
const listConflictsKeysetSQL = `
SELECT` + conflictViewColumns + `
FROM offline_actions
WHERE business_id = $1 AND device_id = $2 AND status IN ('CONFLICT', 'REJECTED')
  AND (created_at, id) < ($3, $4)
ORDER BY created_at DESC, id DESC
LIMIT $5`

func (s *ConflictReadStore) ListFirstPage(ctx context.Context, businessID, deviceID uuid.UUID, limit int32) ([]*queries.ActionView, error) {
	rows, err := s.db.Query(ctx, listConflictsFirstPageSQL, businessID, deviceID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list conflicts", err)
	}
	defer rows.Close()
	return scanActionViews(rows)
}

func (s *ConflictReadStore) ListKeyset(ctx context.Context, businessID, deviceID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.ActionView, error) {
	rows, err := s.db.Query(ctx, listConflictsKeysetSQL,
		businessID, deviceID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list conflicts after cursor", err)
	}
	defer rows.Close()
	return scanActionViews(rows)
}

func scanActionViews(rows pgx.Rows) ([]*queries.ActionView, error) {
	views := make([]*queries.ActionView, 0)
	for rows.Next() {
		var (
			view                         queries.ActionView
			localAuditID, conflictReason pgtype.Text
			errorMessage                 pgtype.Text
			provisionalAt, createdAt     pgtype.Timestamptz
			syncedAt, appliedAt          pgtype.Timestamptz
			result, conflictData         []byte
		)
		err := rows.Scan(
			&view.ID, &view.DeviceID, &view.UserID, &view.ActionType, &view.Checksum,
			&localAuditID, &provisionalAt, &view.Status, &result, &conflictReason,
			&conflictData, &errorMessage, &createdAt, &syncedAt, &appliedAt,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan conflict row", err)
		}

		view.LocalAuditID = pgconv.StringPtrFromPgtype(localAuditID)
		view.ProvisionalAt = pgconv.TimePtrFromPgtype(provisionalAt)
		view.Result = result
		view.ConflictReason = pgconv.StringPtrFromPgtype(conflictReason)
		view.ConflictData = conflictData
		view.ErrorMessage = pgconv.StringPtrFromPgtype(errorMessage)
		view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		view.SyncedAt = pgconv.TimePtrFromPgtype(syncedAt)
		view.AppliedAt = pgconv.TimePtrFromPgtype(appliedAt)
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate conflict rows", err)
	}
	return views, nil
}
