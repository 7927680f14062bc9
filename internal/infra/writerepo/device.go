package writerepo

import (
	"context"
	"encoding/json"

	"possync/internal/domain/device"
	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DeviceRepository struct {
	db db.DBTX
}

func NewDeviceRepository(dbtx db.DBTX) shared.DeviceRepository {
	return &DeviceRepository{db: dbtx}
}

const insertDeviceSQL = `
INSERT INTO offline_devices (
    id, business_id, user_id, name, status, permission_snapshot,
    last_seen_at, created_at, revoked_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *DeviceRepository) Create(ctx context.Context, d *device.Device) error {
	snapshot, err := json.Marshal(d.Snapshot())
	if err != nil {
		return infra.WrapRepoErr("failed to encode permission snapshot", err)
	}

	_, err = r.db.Exec(ctx, insertDeviceSQL,
		d.ID(), d.BusinessID(), d.UserID(), d.Name(), d.Status().String(), snapshot,
		pgconv.TimeToPgtype(d.LastSeenAt()), pgconv.TimeToPgtype(d.CreatedAt()),
		pgconv.TimePtrToPgtype(d.RevokedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert offline device", err)
	}
	return nil
}

const saveDeviceSQL = `
UPDATE offline_devices
SET status = $2,
    permission_snapshot = $3,
    last_seen_at = $4,
    revoked_at = $5
WHERE id = $1`

func (r *DeviceRepository) Save(ctx context.Context, d *device.Device) error {
	snapshot, err := json.Marshal(d.Snapshot())
	if err != nil {
		return infra.WrapRepoErr("failed to encode permission snapshot", err)
	}

	tag, err := r.db.Exec(ctx, saveDeviceSQL,
		d.ID(), d.Status().String(), snapshot,
		pgconv.TimeToPgtype(d.LastSeenAt()), pgconv.TimePtrToPgtype(d.RevokedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update offline device", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("offline device not found", nil, infra.KindNotFound)
	}
	return nil
}

const selectDeviceSQL = `
SELECT id, business_id, user_id, name, status, permission_snapshot,
       last_seen_at, created_at, revoked_at
FROM offline_devices
WHERE id = $1`

func (r *DeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*device.Device, error) {
	return r.scanDevice(ctx, selectDeviceSQL, id)
}

const selectOwnedDeviceSQL = `
SELECT id, business_id, user_id, name, status, permission_snapshot,
       last_seen_at, created_at, revoked_at
FROM offline_devices
WHERE id = $1 AND business_id = $2 AND user_id = $3`

func (r *DeviceRepository) FindOwned(ctx context.Context, businessID, userID, id uuid.UUID) (*device.Device, error) {
	return r.scanDevice(ctx, selectOwnedDeviceSQL, id, businessID, userID)
}

const countActiveDevicesSQL = `
SELECT COUNT(*) FROM offline_devices
WHERE business_id = $1 AND status = 'ACTIVE'`

func (r *DeviceRepository) CountActive(ctx context.Context, businessID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countActiveDevicesSQL, businessID).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count active devices", err)
	}
	return count, nil
}

func (r *DeviceRepository) scanDevice(ctx context.Context, sql string, args ...any) (*device.Device, error) {
	var (
		id, businessID, userID uuid.UUID
		name, status           string
		snapshotRaw            []byte
		lastSeenAt, createdAt  pgtype.Timestamptz
		revokedAt              pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, sql, args...).Scan(
		&id, &businessID, &userID, &name, &status, &snapshotRaw,
		&lastSeenAt, &createdAt, &revokedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offline device not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find offline device", err)
	}

	var snapshot device.PermissionSnapshot
	if len(snapshotRaw) > 0 {
		if err := json.Unmarshal(snapshotRaw, &snapshot); err != nil {
			return nil, infra.WrapRepoErr("failed to decode permission snapshot", err)
		}
	}

	return device.Reconstruct(
		id, businessID, userID, name, device.Status(status), snapshot,
		pgconv.TimeFromPgtype(lastSeenAt), pgconv.TimeFromPgtype(createdAt),
		pgconv.TimePtrFromPgtype(revokedAt),
	), nil
}
