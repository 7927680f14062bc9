package writerepo

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"

	"github.com/google/uuid"
)

// tenantSettings is the per-business policy row as the writers need it.
// Missing rows fall back to zero values, which the callers treat as
// "no tenant override".
type tenantSettings struct {
	AllowNegativeStock         bool
	BatchTrackingOn            bool
	VarianceThreshold          float64
	DiscountApprovalThreshold  float64
	AdjustmentApprovalQuantity float64
}

const selectTenantSettingsSQL = `
SELECT allow_negative_stock, batch_tracking_on, variance_threshold,
       discount_approval_threshold, adjustment_approval_quantity
FROM business_settings
WHERE business_id = $1`

func loadTenantSettings(ctx context.Context, dbtx db.DBTX, businessID uuid.UUID) (*tenantSettings, error) {
	var s tenantSettings
	err := dbtx.QueryRow(ctx, selectTenantSettingsSQL, businessID).Scan(
		&s.AllowNegativeStock, &s.BatchTrackingOn, &s.VarianceThreshold,
		&s.DiscountApprovalThreshold, &s.AdjustmentApprovalQuantity,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return &tenantSettings{}, nil
		}
		return nil, infra.WrapRepoErr("failed to read tenant settings", err)
	}
	return &s, nil
}
