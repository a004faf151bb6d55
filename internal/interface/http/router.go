package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/healthsync/internal/domain/auth"
	"github.com/yanqian/healthsync/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// metrics may be nil to omit the scrape endpoint.
func NewRouter(cfg *config.Config, handler *SyncHandler, authSvc auth.Service, metrics http.Handler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	api := router.Group("/api/v1", authMiddleware(authSvc), rateLimitMiddleware(cfg.HTTP.RateLimit, logger))
	{
		integrations := api.Group("/integrations/:integrationId")
		integrations.POST("/sync", handler.Sync)
		integrations.POST("/sync/jobs", handler.EnqueueSync)
		integrations.GET("/metrics", handler.ListMetrics)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
