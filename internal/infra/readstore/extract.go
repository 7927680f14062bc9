package readstore

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ExtractReadStore reads each slice of the offline extract. Every query is
// business-scoped; the extract never crosses tenants.
type ExtractReadStore struct {
	db db.DBTX
}

func NewExtractReadStore(dbtx db.DBTX) queries.ExtractReadStore {
	return &ExtractReadStore{db: dbtx}
}

const extractBranchesSQL = `
SELECT id, name FROM branches WHERE business_id = $1 ORDER BY name`

func (s *ExtractReadStore) Branches(ctx context.Context, businessID uuid.UUID) ([]*queries.BranchView, error) {
	return collect(ctx, s.db, extractBranchesSQL, businessID, "failed to read branches",
		func(rows pgx.Rows) (*queries.BranchView, error) {
			var v queries.BranchView
			err := rows.Scan(&v.ID, &v.Name)
			return &v, err
		})
}

const extractCatalogSQL = `
SELECT id, product_id, name, sku, price, unit_id, active
FROM product_variants
WHERE business_id = $1 AND active = true
ORDER BY name`

func (s *ExtractReadStore) ActiveCatalog(ctx context.Context, businessID uuid.UUID) ([]*queries.VariantView, error) {
	return collect(ctx, s.db, extractCatalogSQL, businessID, "failed to read catalog",
		func(rows pgx.Rows) (*queries.VariantView, error) {
			var v queries.VariantView
			err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.Price, &v.UnitID, &v.Active)
			return &v, err
		})
}

const extractUnitsSQL = `
SELECT id, name, symbol FROM units WHERE business_id = $1 ORDER BY name`

func (s *ExtractReadStore) Units(ctx context.Context, businessID uuid.UUID) ([]*queries.UnitView, error) {
	return collect(ctx, s.db, extractUnitsSQL, businessID, "failed to read units",
		func(rows pgx.Rows) (*queries.UnitView, error) {
			var v queries.UnitView
			err := rows.Scan(&v.ID, &v.Name, &v.Symbol)
			return &v, err
		})
}

const extractBarcodesSQL = `
SELECT b.variant_id, b.code
FROM variant_barcodes b
JOIN product_variants v ON v.id = b.variant_id
WHERE v.business_id = $1`

func (s *ExtractReadStore) Barcodes(ctx context.Context, businessID uuid.UUID) ([]*queries.BarcodeView, error) {
	return collect(ctx, s.db, extractBarcodesSQL, businessID, "failed to read barcodes",
		func(rows pgx.Rows) (*queries.BarcodeView, error) {
			var v queries.BarcodeView
			err := rows.Scan(&v.VariantID, &v.Code)
			return &v, err
		})
}

const extractBatchesSQL = `
SELECT id, variant_id, branch_id, quantity, expires_at
FROM stock_batches
WHERE business_id = $1 AND quantity > 0`

func (s *ExtractReadStore) Batches(ctx context.Context, businessID uuid.UUID) ([]*queries.BatchView, error) {
	return collect(ctx, s.db, extractBatchesSQL, businessID, "failed to read batches",
		func(rows pgx.Rows) (*queries.BatchView, error) {
			var v queries.BatchView
			var expiresAt pgtype.Timestamptz
			err := rows.Scan(&v.ID, &v.VariantID, &v.BranchID, &v.Quantity, &expiresAt)
			v.ExpiresAt = pgconv.TimePtrFromPgtype(expiresAt)
			return &v, err
		})
}

const extractStockSQL = `
SELECT branch_id, variant_id, quantity, in_transit_quantity
FROM stock_snapshots
WHERE business_id = $1`

func (s *ExtractReadStore) StockSnapshots(ctx context.Context, businessID uuid.UUID) ([]*queries.StockView, error) {
	return collect(ctx, s.db, extractStockSQL, businessID, "failed to read stock snapshots",
		func(rows pgx.Rows) (*queries.StockView, error) {
			var v queries.StockView
			err := rows.Scan(&v.BranchID, &v.VariantID, &v.Quantity, &v.InTransitQuantity)
			return &v, err
		})
}

const extractCustomersSQL = `
SELECT id, name, phone FROM customers WHERE business_id = $1 ORDER BY name`

func (s *ExtractReadStore) Customers(ctx context.Context, businessID uuid.UUID) ([]*queries.CustomerView, error) {
	return collect(ctx, s.db, extractCustomersSQL, businessID, "failed to read customers",
		func(rows pgx.Rows) (*queries.CustomerView, error) {
			var v queries.CustomerView
			var phone pgtype.Text
			err := rows.Scan(&v.ID, &v.Name, &phone)
			v.Phone = pgconv.StringPtrFromPgtype(phone)
			return &v, err
		})
}

const extractPriceListsSQL = `
SELECT id, variant_id, name, price
FROM price_list_entries
WHERE business_id = $1`

func (s *ExtractReadStore) PriceLists(ctx context.Context, businessID uuid.UUID) ([]*queries.PriceListView, error) {
	return collect(ctx, s.db, extractPriceListsSQL, businessID, "failed to read price lists",
		func(rows pgx.Rows) (*queries.PriceListView, error) {
			var v queries.PriceListView
			err := rows.Scan(&v.ID, &v.VariantID, &v.Name, &v.Price)
			return &v, err
		})
}

const extractSuppliersSQL = `
SELECT id, name FROM suppliers WHERE business_id = $1 ORDER BY name`

func (s *ExtractReadStore) Suppliers(ctx context.Context, businessID uuid.UUID) ([]*queries.SupplierView, error) {
	return collect(ctx, s.db, extractSuppliersSQL, businessID, "failed to read suppliers",
		func(rows pgx.Rows) (*queries.SupplierView, error) {
			var v queries.SupplierView
			err := rows.Scan(&v.ID, &v.Name)
			return &v, err
		})
}

func collect[T any](ctx context.Context, dbtx db.DBTX, sql string, businessID uuid.UUID, failMsg string, scan func(pgx.Rows) (*T, error)) ([]*T, error) {
	rows, err := dbtx.Query(ctx, sql, businessID)
	if err != nil {
		return nil, infra.WrapRepoErr(failMsg, err)
	}
	defer rows.Close()

	items := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, infra.WrapRepoErr(failMsg, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(failMsg, err)
	}
	return items, nil
}
