package readstore

import (
	"context"
	"time"

	"possync/internal/domain/risk"
	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
)

type RiskReadStore struct {
	db db.DBTX
}

func NewRiskReadStore(dbtx db.DBTX) queries.RiskReadStore {
	return &RiskReadStore{db: dbtx}
}

// One round trip for all five aggregates; the overview is a dashboard
// read that should not fan out into per-count queries.
const selectRiskCountsSQL = `
SELECT
    (SELECT COUNT(*) FROM offline_devices
     WHERE business_id = $1 AND status = 'EXPIRED'),
    (SELECT COUNT(*) FROM offline_devices
     WHERE business_id = $1 AND status = 'ACTIVE' AND last_seen_at < $2),
    (SELECT COUNT(*) FROM offline_actions
     WHERE business_id = $1 AND status = 'PENDING'),
    (SELECT COUNT(*) FROM offline_actions
     WHERE business_id = $1 AND status = 'CONFLICT'),
    (SELECT COUNT(*) FROM offline_actions
     WHERE business_id = $1 AND status = 'FAILED')`

func (s *RiskReadStore) Counts(ctx context.Context, businessID uuid.UUID, staleBefore time.Time) (*risk.Counts, error) {
	var counts risk.Counts
	err := s.db.QueryRow(ctx, selectRiskCountsSQL, businessID, pgconv.TimeToPgtype(staleBefore)).Scan(
		&counts.ExpiredDevices, &counts.StaleActiveDevices,
		&counts.PendingActions, &counts.ConflictActions, &counts.FailedActions,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read risk counts", err)
	}
	return &counts, nil
}
