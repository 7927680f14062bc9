package readstore

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

type SubscriptionReadStore struct {
	db db.DBTX
}

func NewSubscriptionReadStore(dbtx db.DBTX) shared.SubscriptionLookup {
	return &SubscriptionReadStore{db: dbtx}
}

const selectSubscriptionSQL = `
SELECT tier, status, offline_enabled, max_offline_devices
FROM subscriptions
WHERE business_id = $1`

func (s *SubscriptionReadStore) Get(ctx context.Context, businessID uuid.UUID) (*shared.SubscriptionInfo, error) {
	var info shared.SubscriptionInfo
	err := s.db.QueryRow(ctx, selectSubscriptionSQL, businessID).Scan(
		&info.Tier, &info.Status, &info.OfflineEnabled, &info.MaxOfflineDevices,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("subscription not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read subscription", err)
	}
	return &info, nil
}
