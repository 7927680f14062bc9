package components

import (
	"possync/internal/infra/cache"
	"possync/internal/infra/db"
	"possync/internal/infra/readstore"
	"possync/internal/infra/uow"
	"possync/internal/infra/writerepo"
	"possync/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	repositoryModule,
)

var baseOption = fx.Provide(
	NewDBTX,
	func(cfg config.Config) config.RedisConfig { return cfg.Redis },
	func(cfg config.Config) config.SyncConfig { return cfg.Sync },
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		readstore.NewSubscriptionReadStore,
		readstore.NewSettingsReadStore,
		readstore.NewPermissionReadStore,
		readstore.NewApprovalReadStore,
		readstore.NewCatalogReadStore,
		readstore.NewConflictReadStore,
		readstore.NewDeviceReadStore,
		readstore.NewRiskReadStore,
		readstore.NewExtractReadStore,
		cache.NewExtractCache,
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
		writerepo.NewDeviceRepository,
		writerepo.NewActionRepository,
		writerepo.NewStockRepository,
		writerepo.NewSaleWriter,
		writerepo.NewPurchaseWriter,
		writerepo.NewStockAdjustmentWriter,
		writerepo.NewAuditSink,
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
