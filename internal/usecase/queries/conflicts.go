package queries

import (
	"context"
	"time"

	"possync/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errs.New("invalid pagination cursor")

// ConflictReadStore lists CONFLICT/REJECTED ledger entries for a device.
type ConflictReadStore interface {
	ListFirstPage(ctx context.Context, businessID, deviceID uuid.UUID, limit int32) ([]*ActionView, error)
	ListKeyset(ctx context.Context, businessID, deviceID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*ActionView, error)
}

type DeviceReadStore interface {
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*DeviceView, error)
}

type ConflictPage struct {
	Items      []*ActionView
	NextCursor string
}

type ConflictQueries interface {
	ListConflicts(ctx context.Context, businessID, deviceID uuid.UUID, after string, limit int) (*ConflictPage, error)
}

type conflictQueriesImpl struct {
	store ConflictReadStore
}

func NewConflictQueries(store ConflictReadStore) ConflictQueries {
	return &conflictQueriesImpl{store: store}
}

func (q *conflictQueriesImpl) ListConflicts(ctx context.Context, businessID, deviceID uuid.UUID, after string, limit int) (*ConflictPage, error) {
	bounded := int32(ValidateLimit(limit))

	var (
		items []*ActionView
		err   error
	)
	if after == "" {
		items, err = q.store.ListFirstPage(ctx, businessID, deviceID, bounded)
	} else {
		lastCreatedAt, lastID, decodeErr := DecodeAfterCursor(after)
		if decodeErr != nil {
			return nil, errs.Mark(decodeErr, ErrInvalidCursor)
		}
		items, err = q.store.ListKeyset(ctx, businessID, deviceID, lastCreatedAt, lastID, bounded)
	}
	if err != nil {
		return nil, err
	}

	page := &ConflictPage{Items: items}
	if len(items) == int(bounded) {
		last := items[len(items)-1]
		page.NextCursor = EncodeAfterCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

type DeviceQueries interface {
	ListDevices(ctx context.Context, businessID uuid.UUID) ([]*DeviceView, error)
}

type deviceQueriesImpl struct {
	store DeviceReadStore
}

func NewDeviceQueries(store DeviceReadStore) DeviceQueries {
	return &deviceQueriesImpl{store: store}
}

func (q *deviceQueriesImpl) ListDevices(ctx context.Context, businessID uuid.UUID) ([]*DeviceView, error) {
	return q.store.ListByBusiness(ctx, businessID)
}
