package readstore

import (
	"context"
	"time"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

type SettingsReadStore struct {
	db db.DBTX
}

func NewSettingsReadStore(dbtx db.DBTX) shared.SettingsLookup {
	return &SettingsReadStore{db: dbtx}
}

const selectOfflinePoliciesSQL = `
SELECT max_offline_duration_hours, max_pending_sale_count, max_pending_sale_value,
       variance_threshold, allow_negative_stock, batch_tracking_on
FROM business_settings
WHERE business_id = $1`

// Get returns zero-valued policies when the tenant has no settings row;
// the governor substitutes the tier defaults for zero values.
func (s *SettingsReadStore) Get(ctx context.Context, businessID uuid.UUID) (*shared.OfflinePolicies, error) {
	var (
		durationHours int
		policies      shared.OfflinePolicies
	)
	err := s.db.QueryRow(ctx, selectOfflinePoliciesSQL, businessID).Scan(
		&durationHours, &policies.MaxPendingSaleCount, &policies.MaxPendingSaleValue,
		&policies.VarianceThreshold, &policies.AllowNegativeStock, &policies.BatchTrackingOn,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return &shared.OfflinePolicies{}, nil
		}
		return nil, infra.WrapRepoErr("failed to read offline policies", err)
	}

	policies.MaxOfflineDuration = time.Duration(durationHours) * time.Hour
	return &policies, nil
}
