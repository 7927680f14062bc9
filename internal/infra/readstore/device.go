package readstore

import (
	"context"
	"encoding/json"

	"possync/internal/domain/device"
	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DeviceReadStore struct {
	db db.DBTX
}

func NewDeviceReadStore(dbtx db.DBTX) queries.DeviceReadStore {
	return &DeviceReadStore{db: dbtx}
}

const listDevicesSQL = `
SELECT id, business_id, user_id, name, status, permission_snapshot,
       last_seen_at, created_at, revoked_at
FROM offline_devices
WHERE business_id = $1
ORDER BY created_at DESC`

func (s *DeviceReadStore) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*queries.DeviceView, error) {
	rows, err := s.db.Query(ctx, listDevicesSQL, businessID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list offline devices", err)
	}
	defer rows.Close()

	views := make([]*queries.DeviceView, 0)
	for rows.Next() {
		var (
			view                  queries.DeviceView
			snapshotRaw           []byte
			lastSeenAt, createdAt pgtype.Timestamptz
			revokedAt             pgtype.Timestamptz
		)
		err := rows.Scan(
			&view.ID, &view.BusinessID, &view.UserID, &view.Name, &view.Status,
			&snapshotRaw, &lastSeenAt, &createdAt, &revokedAt,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan offline device", err)
		}

		if len(snapshotRaw) > 0 {
			var snapshot device.PermissionSnapshot
			if err := json.Unmarshal(snapshotRaw, &snapshot); err == nil {
				view.Permissions = snapshot.Permissions
			}
		}
		view.LastSeenAt = pgconv.TimeFromPgtype(lastSeenAt)
		view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		view.RevokedAt = pgconv.TimePtrFromPgtype(revokedAt)
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate offline devices", err)
	}
	return views, nil
}
