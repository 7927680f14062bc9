package components

import (
	"possync/internal/pkg/clock"
	"possync/internal/usecase/commands"
	"possync/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewDeviceCommands,
		commands.NewSyncCommands,
		commands.NewResolutionCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		fx.Annotate(
			queries.NewCacheQueries,
			fx.As(new(queries.CacheQueries)),
			fx.As(new(queries.CacheBuilder)),
		),
		queries.NewConflictQueries,
		queries.NewDeviceQueries,
		queries.NewRiskQueries,
	),
)
