package shared

import (
	"context"

	"possync/internal/domain/action"
	"possync/internal/domain/device"
	"possync/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
}

type Tx interface {
	Devices() DeviceRepository
	Actions() ActionRepository
	Stock() StockRepository
	DB() db.DBTX
}

type DeviceRepository interface {
	Create(ctx context.Context, d *device.Device) error
	Save(ctx context.Context, d *device.Device) error
	FindByID(ctx context.Context, id uuid.UUID) (*device.Device, error)
	FindOwned(ctx context.Context, businessID, userID, id uuid.UUID) (*device.Device, error)
	CountActive(ctx context.Context, businessID uuid.UUID) (int, error)
}

// PendingSaleStats sums the PENDING sale actions already queued for a
// device, for the count/value ceiling check at intake.
type PendingSaleStats struct {
	Count int
	Value float64
}

type ActionRepository interface {
	// Insert records the action under the (business, device, checksum)
	// uniqueness constraint; inserted=false means this checksum was seen
	// before and the prior record stands.
	Insert(ctx context.Context, a *action.Action) (inserted bool, err error)
	FindByChecksum(ctx context.Context, businessID, deviceID uuid.UUID, checksum string) (*action.Action, error)
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*action.Action, error)
	SaveOutcome(ctx context.Context, a *action.Action) error
	PendingSales(ctx context.Context, deviceID uuid.UUID) (*PendingSaleStats, error)
}

// StockRepository exposes the snapshot's atomic delta primitive. The
// non-negative guard lives in the UPDATE itself; there is no application
// level lock on top (documented limitation of the sync model).
type StockRepository interface {
	ApplyDelta(ctx context.Context, businessID, branchID, variantID uuid.UUID, delta float64, allowNegative bool) error
	Quantity(ctx context.Context, businessID, branchID, variantID uuid.UUID) (float64, error)
}
