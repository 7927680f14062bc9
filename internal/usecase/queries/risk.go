package queries

import (
	"context"
	"time"

	"possync/internal/domain/risk"
	"possync/internal/pkg/clock"
	"possync/internal/pkg/config"

	"github.com/google/uuid"
)

// RiskReadStore supplies the raw aggregates behind the overview.
type RiskReadStore interface {
	Counts(ctx context.Context, businessID uuid.UUID, staleBefore time.Time) (*risk.Counts, error)
}

type RiskQueries interface {
	Overview(ctx context.Context, businessID uuid.UUID) (*risk.Overview, error)
}

type riskQueriesImpl struct {
	store      RiskReadStore
	staleAfter time.Duration
	clock      clock.Clock
}

func NewRiskQueries(store RiskReadStore, cfg config.SyncConfig, clock clock.Clock) RiskQueries {
	return &riskQueriesImpl{
		store:      store,
		staleAfter: cfg.StaleAfter,
		clock:      clock,
	}
}

func (q *riskQueriesImpl) Overview(ctx context.Context, businessID uuid.UUID) (*risk.Overview, error) {
	staleBefore := q.clock.Now().Add(-q.staleAfter)
	counts, err := q.store.Counts(ctx, businessID, staleBefore)
	if err != nil {
		return nil, err
	}

	overview := risk.Assess(*counts)
	return &overview, nil
}
