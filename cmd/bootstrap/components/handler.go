package components

import (
	"possync/internal/handler"
	"possync/internal/handler/api"
	"possync/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewDeviceHandler,
		api.NewSyncHandler,
		api.NewConflictHandler,
		api.NewRiskHandler,
		api.NewCacheHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
