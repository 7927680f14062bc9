package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"possync/internal/handler/api"
	"possync/internal/handler/middleware"
	"possync/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	deviceHandler *api.DeviceHandler,
	syncHandler *api.SyncHandler,
	conflictHandler *api.ConflictHandler,
	riskHandler *api.RiskHandler,
	cacheHandler *api.CacheHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, deviceHandler, syncHandler, conflictHandler, riskHandler, cacheHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	deviceHandler *api.DeviceHandler,
	syncHandler *api.SyncHandler,
	conflictHandler *api.ConflictHandler,
	riskHandler *api.RiskHandler,
	cacheHandler *api.CacheHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		offline := apiGroup.Group("/offline")
		offline.Use(authMiddleware.RequireAuth())
		{
			devices := offline.Group("/devices")
			{
				addRoutes(devices, []route{
					{Method: http.MethodPost, Path: "", Handler: deviceHandler.RegisterDevice},
					{Method: http.MethodGet, Path: "", Handler: deviceHandler.ListDevices},
					{Method: http.MethodDelete, Path: "/:id", Handler: deviceHandler.RevokeDevice},
					{Method: http.MethodPost, Path: "/:id/status", Handler: deviceHandler.RecordStatus},
					{Method: http.MethodGet, Path: "/:id/conflicts", Handler: conflictHandler.ListConflicts},
				})
			}

			addRoutes(offline, []route{
				{Method: http.MethodPost, Path: "/sync", Handler: syncHandler.Sync},
				{Method: http.MethodPost, Path: "/conflicts/:id/resolve", Handler: conflictHandler.ResolveConflict},
				{Method: http.MethodGet, Path: "/risk", Handler: riskHandler.Overview},
				{Method: http.MethodGet, Path: "/cache", Handler: cacheHandler.GetExtract},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
