package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/class-schedule-api/api/swagger"
	"github.com/noah-isme/class-schedule-api/internal/handler"
	internalmiddleware "github.com/noah-isme/class-schedule-api/internal/middleware"
	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/pkg/config"
	"github.com/noah-isme/class-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-schedule-api/pkg/middleware/requestid"
)

// Router builds the HTTP routes.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(a.Metrics, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())
	r.MaxMultipartMemory = cfg.Ingest.MaxFileSizeBytes

	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewScheduleHandler(a.Schedule, a.Validator, handler.ScheduleHandlerConfig{
		MaxFileSize:       cfg.Ingest.MaxFileSizeBytes,
		AllowedExtensions: cfg.Ingest.AllowedExtensions,
	})
	sessionHandler := handler.NewSessionHandler(a.Conversation, a.Validator, cfg.Ingest.MaxFileSizeBytes)

	api := r.Group(cfg.APIPrefix)
	var guard []gin.HandlerFunc
	if cfg.JWT.Enabled {
		guard = []gin.HandlerFunc{internalmiddleware.JWT(a.Auth), internalmiddleware.RequireRoles(models.RoleAdmin)}
	}
	guarded := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guard...), handlers...)
	}

	schedule := api.Group("/schedule")
	schedule.GET("", scheduleHandler.Query)
	schedule.GET("/export", scheduleHandler.Export)
	schedule.GET("/stats", scheduleHandler.Stats)
	schedule.POST("/documents", guarded(internalmiddleware.Audit(a.Logger, "schedule.ingest"), scheduleHandler.Upload)...)
	schedule.DELETE("", guarded(internalmiddleware.Audit(a.Logger, "schedule.clear"), scheduleHandler.Clear)...)

	// Chat front-ends can clear and ingest through a session, so they sit
	// behind the same guard as the write routes.
	sessions := api.Group("/sessions")
	sessions.POST("/:id/messages", guarded(sessionHandler.Message)...)
	sessions.POST("/:id/documents", guarded(internalmiddleware.Audit(a.Logger, "session.ingest"), sessionHandler.Document)...)

	api.GET("/metrics/summary", metricsHandler.Summary)

	return r
}
