package queries

import (
	"context"
	"log/slog"

	"possync/internal/pkg/errs"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// CacheExtract is the full offline-capable data set handed to a device
// after every sync. It always reflects state after the call's actions
// applied — never a snapshot read earlier in the request lifecycle.
type CacheExtract struct {
	Branches    []BranchView    `json:"branches"`
	Catalog     []VariantView   `json:"catalog"`
	Units       []UnitView      `json:"units"`
	Barcodes    []BarcodeView   `json:"barcodes"`
	Batches     []BatchView     `json:"batches,omitempty"`
	Stock       []StockView     `json:"stock"`
	Customers   []CustomerView  `json:"customers"`
	PriceLists  []PriceListView `json:"price_lists"`
	Suppliers   []SupplierView  `json:"suppliers"`
	Permissions []string        `json:"permissions"`
	Policies    ExtractPolicies `json:"policies"`
}

type ExtractPolicies struct {
	VarianceThreshold  float64 `json:"variance_threshold"`
	AllowNegativeStock bool    `json:"allow_negative_stock"`
	BatchTrackingOn    bool    `json:"batch_tracking_on"`
}

// ExtractReadStore reads each slice of the extract from the
// authoritative store.
type ExtractReadStore interface {
	Branches(ctx context.Context, businessID uuid.UUID) ([]*BranchView, error)
	ActiveCatalog(ctx context.Context, businessID uuid.UUID) ([]*VariantView, error)
	Units(ctx context.Context, businessID uuid.UUID) ([]*UnitView, error)
	Barcodes(ctx context.Context, businessID uuid.UUID) ([]*BarcodeView, error)
	Batches(ctx context.Context, businessID uuid.UUID) ([]*BatchView, error)
	StockSnapshots(ctx context.Context, businessID uuid.UUID) ([]*StockView, error)
	Customers(ctx context.Context, businessID uuid.UUID) ([]*CustomerView, error)
	PriceLists(ctx context.Context, businessID uuid.UUID) ([]*PriceListView, error)
	Suppliers(ctx context.Context, businessID uuid.UUID) ([]*SupplierView, error)
}

// ExtractCache holds the last built extract per device so a reconnecting
// client can re-fetch without an empty sync.
type ExtractCache interface {
	Put(ctx context.Context, deviceID uuid.UUID, extract *CacheExtract) error
	Get(ctx context.Context, deviceID uuid.UUID) (*CacheExtract, bool, error)
}

type CacheBuilder interface {
	Build(ctx context.Context, businessID, userID, deviceID uuid.UUID) (*CacheExtract, error)
}

type CacheQueries interface {
	CacheBuilder
	// GetExtract prefers the cached copy and rebuilds on a miss.
	GetExtract(ctx context.Context, businessID, userID, deviceID uuid.UUID) (*CacheExtract, error)
}

type cacheBuilderImpl struct {
	store       ExtractReadStore
	cache       ExtractCache
	permissions shared.PermissionResolver
	settings    shared.SettingsLookup
}

func NewCacheQueries(
	store ExtractReadStore,
	cache ExtractCache,
	permissions shared.PermissionResolver,
	settings shared.SettingsLookup,
) CacheQueries {
	return &cacheBuilderImpl{
		store:       store,
		cache:       cache,
		permissions: permissions,
		settings:    settings,
	}
}

func (b *cacheBuilderImpl) Build(ctx context.Context, businessID, userID, deviceID uuid.UUID) (*CacheExtract, error) {
	policies, err := b.settings.Get(ctx, businessID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read tenant policies for extract")
	}
	access, err := b.permissions.ResolveUserAccess(ctx, userID, businessID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to resolve permissions for extract")
	}

	extract := &CacheExtract{
		Permissions: access.Permissions,
		Policies: ExtractPolicies{
			VarianceThreshold:  policies.VarianceThreshold,
			AllowNegativeStock: policies.AllowNegativeStock,
			BatchTrackingOn:    policies.BatchTrackingOn,
		},
	}

	if err := b.fill(ctx, businessID, extract, policies.BatchTrackingOn); err != nil {
		return nil, err
	}

	if cacheErr := b.cache.Put(ctx, deviceID, extract); cacheErr != nil {
		// The extract cache is an optimization; a failed write must not
		// fail the sync that produced the extract.
		slog.Warn("failed to cache offline extract", "device_id", deviceID, "error", cacheErr)
	}

	return extract, nil
}

func (b *cacheBuilderImpl) GetExtract(ctx context.Context, businessID, userID, deviceID uuid.UUID) (*CacheExtract, error) {
	cached, ok, err := b.cache.Get(ctx, deviceID)
	if err != nil {
		slog.Warn("offline extract cache read failed", "device_id", deviceID, "error", err)
	}
	if ok {
		return cached, nil
	}
	return b.Build(ctx, businessID, userID, deviceID)
}

func (b *cacheBuilderImpl) fill(ctx context.Context, businessID uuid.UUID, extract *CacheExtract, withBatches bool) error {
	branches, err := b.store.Branches(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read branches")
	}
	catalog, err := b.store.ActiveCatalog(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read catalog")
	}
	units, err := b.store.Units(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read units")
	}
	barcodes, err := b.store.Barcodes(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read barcodes")
	}
	stock, err := b.store.StockSnapshots(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read stock snapshots")
	}
	customers, err := b.store.Customers(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read customers")
	}
	priceLists, err := b.store.PriceLists(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read price lists")
	}
	suppliers, err := b.store.Suppliers(ctx, businessID)
	if err != nil {
		return errs.Wrap(err, "failed to read suppliers")
	}

	if err := copier.Copy(&extract.Branches, branches); err != nil {
		return errs.Wrap(err, "failed to map branches")
	}
	if err := copier.Copy(&extract.Catalog, catalog); err != nil {
		return errs.Wrap(err, "failed to map catalog")
	}
	if err := copier.Copy(&extract.Units, units); err != nil {
		return errs.Wrap(err, "failed to map units")
	}
	if err := copier.Copy(&extract.Barcodes, barcodes); err != nil {
		return errs.Wrap(err, "failed to map barcodes")
	}
	if err := copier.Copy(&extract.Stock, stock); err != nil {
		return errs.Wrap(err, "failed to map stock snapshots")
	}
	if err := copier.Copy(&extract.Customers, customers); err != nil {
		return errs.Wrap(err, "failed to map customers")
	}
	if err := copier.Copy(&extract.PriceLists, priceLists); err != nil {
		return errs.Wrap(err, "failed to map price lists")
	}
	if err := copier.Copy(&extract.Suppliers, suppliers); err != nil {
		return errs.Wrap(err, "failed to map suppliers")
	}

	if withBatches {
		batches, err := b.store.Batches(ctx, businessID)
		if err != nil {
			return errs.Wrap(err, "failed to read batches")
		}
		if err := copier.Copy(&extract.Batches, batches); err != nil {
			return errs.Wrap(err, "failed to map batches")
		}
	}

	return nil
}
