package writerepo

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

type StockRepository struct {
	db db.DBTX
}

func NewStockRepository(dbtx db.DBTX) shared.StockRepository {
	return &StockRepository{db: dbtx}
}

// The non-negative guard lives in the UPDATE predicate so two concurrent
// decrements cannot both pass a read-then-write check.
const applyDeltaGuardedSQL = `
UPDATE stock_snapshots
SET quantity = quantity + $4, updated_at = now()
WHERE business_id = $1 AND branch_id = $2 AND variant_id = $3
  AND quantity + $4 >= 0`

const applyDeltaSQL = `
UPDATE stock_snapshots
SET quantity = quantity + $4, updated_at = now()
WHERE business_id = $1 AND branch_id = $2 AND variant_id = $3`

func (r *StockRepository) ApplyDelta(ctx context.Context, businessID, branchID, variantID uuid.UUID, delta float64, allowNegative bool) error {
	sql := applyDeltaGuardedSQL
	if allowNegative {
		sql = applyDeltaSQL
	}

	tag, err := r.db.Exec(ctx, sql, businessID, branchID, variantID, delta)
	if err != nil {
		return infra.WrapRepoErr("failed to apply stock delta", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means either the guard blocked the decrement or the
	// snapshot row does not exist; distinguish the two for the caller.
	if _, err := r.Quantity(ctx, businessID, branchID, variantID); err != nil {
		return err
	}
	return shared.ErrInsufficientStock
}

const selectQuantitySQL = `
SELECT quantity FROM stock_snapshots
WHERE business_id = $1 AND branch_id = $2 AND variant_id = $3`

func (r *StockRepository) Quantity(ctx context.Context, businessID, branchID, variantID uuid.UUID) (float64, error) {
	var quantity float64
	err := r.db.QueryRow(ctx, selectQuantitySQL, businessID, branchID, variantID).Scan(&quantity)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return 0, infra.WrapRepoErr("stock snapshot not found", err, infra.KindNotFound)
		}
		return 0, infra.WrapRepoErr("failed to read stock quantity", err)
	}
	return quantity, nil
}
