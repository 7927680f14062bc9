package writerepo

import (
	"context"
	"encoding/json"

	"possync/internal/domain/action"
	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ActionRepository struct {
	db db.DBTX
}

func NewActionRepository(dbtx db.DBTX) shared.ActionRepository {
	return &ActionRepository{db: dbtx}
}

// ON CONFLICT DO NOTHING against the (business_id, device_id, checksum)
// unique index is the whole idempotency guarantee. RowsAffected tells the
// caller whether this submission was the first.
const insertActionSQL = `
INSERT INTO offline_actions (
    id, business_id, device_id, user_id, action_type, payload, checksum,
    local_audit_id, provisional_at, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (business_id, device_id, checksum) DO NOTHING`

func (r *ActionRepository) Insert(ctx context.Context, a *action.Action) (bool, error) {
	tag, err := r.db.Exec(ctx, insertActionSQL,
		a.ID(), a.BusinessID(), a.DeviceID(), a.UserID(),
		string(a.ActionType()), []byte(a.Payload()), a.Checksum(),
		pgconv.StringPtrToPgtype(a.LocalAuditID()), pgconv.TimePtrToPgtype(a.ProvisionalAt()),
		string(a.Status()), pgconv.TimeToPgtype(a.CreatedAt()),
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to insert offline action", err)
	}
	return tag.RowsAffected() > 0, nil
}

const actionColumns = `
    id, business_id, device_id, user_id, action_type, payload, checksum,
    local_audit_id, provisional_at, status, result, conflict_reason,
    conflict_data, error_message, created_at, synced_at, applied_at`

const selectActionByChecksumSQL = `
SELECT` + actionColumns + `
FROM offline_actions
WHERE business_id = $1 AND device_id = $2 AND checksum = $3`

func (r *ActionRepository) FindByChecksum(ctx context.Context, businessID, deviceID uuid.UUID, checksum string) (*action.Action, error) {
	return r.scanAction(ctx, selectActionByChecksumSQL, businessID, deviceID, checksum)
}

const selectActionByIDSQL = `
SELECT` + actionColumns + `
FROM offline_actions
WHERE business_id = $1 AND id = $2`

func (r *ActionRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*action.Action, error) {
	return r.scanAction(ctx, selectActionByIDSQL, businessID, id)
}

const saveOutcomeSQL = `
UPDATE offline_actions
SET status = $2,
    result = $3,
    conflict_reason = $4,
    conflict_data = $5,
    error_message = $6,
    synced_at = $7,
    applied_at = $8
WHERE id = $1`

func (r *ActionRepository) SaveOutcome(ctx context.Context, a *action.Action) error {
	var reason *string
	if cr := a.ConflictReason(); cr != nil {
		s := string(*cr)
		reason = &s
	}

	tag, err := r.db.Exec(ctx, saveOutcomeSQL,
		a.ID(), string(a.Status()), []byte(a.Result()),
		pgconv.StringPtrToPgtype(reason), []byte(a.ConflictData()),
		pgconv.StringPtrToPgtype(a.ErrorMessage()),
		pgconv.TimePtrToPgtype(a.SyncedAt()), pgconv.TimePtrToPgtype(a.AppliedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save action outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("offline action not found", nil, infra.KindNotFound)
	}
	return nil
}

const pendingSalePayloadsSQL = `
SELECT payload FROM offline_actions
WHERE device_id = $1 AND status = 'PENDING' AND action_type = 'SALE_COMPLETE'`

// PendingSales sums queued sale totals in the application rather than in
// SQL so malformed payloads degrade to a skipped line, not a query error.
func (r *ActionRepository) PendingSales(ctx context.Context, deviceID uuid.UUID) (*shared.PendingSaleStats, error) {
	rows, err := r.db.Query(ctx, pendingSalePayloadsSQL, deviceID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list pending sales", err)
	}
	defer rows.Close()

	stats := &shared.PendingSaleStats{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, infra.WrapRepoErr("failed to scan pending sale", err)
		}
		stats.Count++

		var payload action.SalePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		stats.Value += payload.Total()
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate pending sales", err)
	}
	return stats, nil
}

func (r *ActionRepository) scanAction(ctx context.Context, sql string, args ...any) (*action.Action, error) {
	var (
		id, businessID, deviceID, userID uuid.UUID
		actionType, checksum, status     string
		payload, result, conflictData    []byte
		localAuditID, conflictReason     pgtype.Text
		errorMessage                     pgtype.Text
		provisionalAt                    pgtype.Timestamptz
		createdAt                        pgtype.Timestamptz
		syncedAt, appliedAt              pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&id, &businessID, &deviceID, &userID, &actionType, &payload, &checksum,
		&localAuditID, &provisionalAt, &status, &result, &conflictReason,
		&conflictData, &errorMessage, &createdAt, &syncedAt, &appliedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offline action not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find offline action", err)
	}

	var reason *action.ConflictReason
	if conflictReason.Valid {
		cr := action.ConflictReason(conflictReason.String)
		reason = &cr
	}

	return action.Reconstruct(
		id, businessID, deviceID, userID,
		action.Type(actionType), payload, checksum,
		pgconv.StringPtrFromPgtype(localAuditID), pgconv.TimePtrFromPgtype(provisionalAt),
		action.Status(status), result, reason, conflictData,
		pgconv.StringPtrFromPgtype(errorMessage),
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimePtrFromPgtype(syncedAt), pgconv.TimePtrFromPgtype(appliedAt),
	), nil
}
