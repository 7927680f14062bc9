package readstore

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

type CatalogReadStore struct {
	db db.DBTX
}

func NewCatalogReadStore(dbtx db.DBTX) shared.CatalogReader {
	return &CatalogReadStore{db: dbtx}
}

const selectCurrentPricesSQL = `
SELECT id, price FROM product_variants
WHERE business_id = $1 AND id = ANY($2)`

// CurrentPrices returns only the variants that exist; callers treat a
// missing entry as "no current price to compare against".
func (s *CatalogReadStore) CurrentPrices(ctx context.Context, businessID uuid.UUID, variantIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	if len(variantIDs) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	rows, err := s.db.Query(ctx, selectCurrentPricesSQL, businessID, variantIDs)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read current prices", err)
	}
	defer rows.Close()

	prices := make(map[uuid.UUID]float64, len(variantIDs))
	for rows.Next() {
		var id uuid.UUID
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, infra.WrapRepoErr("failed to scan variant price", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate variant prices", err)
	}
	return prices, nil
}
